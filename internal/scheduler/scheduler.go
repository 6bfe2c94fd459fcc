// Package scheduler implements the Scheduler (C5): a single-process timer
// wheel keyed by message id, delivering one-shot and recurring prompts to
// team sessions or the orchestrator, with delivery logging.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/models"
	"github.com/agentmux/agentmux-core/internal/session"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// Storage is the persistence surface the Scheduler depends on.
type Storage interface {
	ListScheduledMessages() ([]*models.ScheduledMessage, error)
	SaveScheduledMessage(m *models.ScheduledMessage) error
	DeleteScheduledMessage(id string) error
	AppendDeliveryLog(l *models.MessageDeliveryLog) error
	GetTeam(id string) (*models.Team, error)
}

// timer tracks one armed message's background goroutine.
type timer struct {
	cancel  context.CancelFunc
	firing  bool
	mu      sync.Mutex
}

// Scheduler arms and fires ScheduledMessages.
type Scheduler struct {
	store  Storage
	driver *session.Driver
	log    *logger.Logger

	mu     sync.Mutex
	timers map[string]*timer
}

// New builds a Scheduler over store and driver.
func New(store Storage, driver *session.Driver, log *logger.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		driver: driver,
		log:    log.WithFields(zap.String("component", "scheduler")),
		timers: make(map[string]*timer),
	}
}

// ScheduleMessage arms msg to fire after its configured delay.
func (s *Scheduler) ScheduleMessage(msg *models.ScheduledMessage) error {
	now := time.Now().UTC()
	next := now.Add(msg.Delay())
	msg.NextRun = &next
	msg.Active = true
	if err := s.store.SaveScheduledMessage(msg); err != nil {
		return err
	}
	s.arm(msg.ID, msg.Delay())
	return nil
}

// CancelMessage removes any pending timer for id and deactivates it. An
// in-flight fire still completes, but no follow-up is armed.
func (s *Scheduler) CancelMessage(id string) error {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.cancel()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	msg, err := s.findMessage(id)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}
	msg.Active = false
	return s.store.SaveScheduledMessage(msg)
}

// ScheduleCheck arms a one-shot check-in message for session, returning its id.
func (s *Scheduler) ScheduleCheck(targetSession string, minutes int, text string) (string, error) {
	msg := &models.ScheduledMessage{
		Name:        fmt.Sprintf("check-in:%s", targetSession),
		Target:      targetSession,
		Message:     text,
		DelayAmount: minutes,
		DelayUnit:   v1.DelayUnitMinutes,
		Recurring:   false,
	}
	if err := s.ScheduleMessage(msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// ScheduleRecurringCheck arms a recurring check-in message, returning its id.
func (s *Scheduler) ScheduleRecurringCheck(targetSession string, intervalMinutes int, text string) (string, error) {
	msg := &models.ScheduledMessage{
		Name:        fmt.Sprintf("recurring-check-in:%s", targetSession),
		Target:      targetSession,
		Message:     text,
		DelayAmount: intervalMinutes,
		DelayUnit:   v1.DelayUnitMinutes,
		Recurring:   true,
	}
	if err := s.ScheduleMessage(msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// ScheduleDefaultCheckins arms the role's default recurring check-in cadence
// for targetSession, if the role has a non-zero default.
func (s *Scheduler) ScheduleDefaultCheckins(targetSession string, role v1.Role, defaultMinutes int) (string, error) {
	if defaultMinutes <= 0 {
		return "", nil
	}
	return s.ScheduleRecurringCheck(targetSession, defaultMinutes, "Status check-in: please report current progress.")
}

// CancelAllChecksForSession cancels every scheduled message whose resolved
// target includes targetSession.
func (s *Scheduler) CancelAllChecksForSession(targetSession string) error {
	msgs, err := s.store.ListScheduledMessages()
	if err != nil {
		return err
	}
	for _, m := range msgs {
		targets, err := s.resolveTargets(m)
		if err != nil {
			continue
		}
		for _, t := range targets {
			if t == targetSession {
				if err := s.CancelMessage(m.ID); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

// RearmAll arms timers for every active message loaded from storage, for
// use at process startup once Storage has been populated.
func (s *Scheduler) RearmAll() error {
	msgs, err := s.store.ListScheduledMessages()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, m := range msgs {
		if !m.Active || m.NextRun == nil {
			continue
		}
		delay := m.NextRun.Sub(now)
		if delay < 0 {
			delay = 0
		}
		s.arm(m.ID, delay)
	}
	return nil
}

func (s *Scheduler) findMessage(id string) (*models.ScheduledMessage, error) {
	msgs, err := s.store.ListScheduledMessages()
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

// arm starts (or restarts) the background timer for messageID, firing after
// delay. A fire already in flight for this id is left alone — re-entry is
// suppressed by the firing flag on the existing timer, never by arm itself.
func (s *Scheduler) arm(messageID string, delay time.Duration) {
	s.mu.Lock()
	if old, ok := s.timers[messageID]; ok {
		old.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &timer{cancel: cancel}
	s.timers[messageID] = t
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		s.fire(messageID, t)
	}()
}

// fire delivers a message to every resolved target, logs each attempt, and
// re-arms if recurring. Re-entrant fires for the same id are suppressed.
func (s *Scheduler) fire(messageID string, t *timer) {
	t.mu.Lock()
	if t.firing {
		t.mu.Unlock()
		return
	}
	t.firing = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.firing = false
		t.mu.Unlock()
	}()

	msg, err := s.findMessage(messageID)
	if err != nil || msg == nil || !msg.Active {
		return
	}

	targets, err := s.resolveTargets(msg)
	if err != nil {
		s.log.Error("failed to resolve scheduled message targets", zap.String("message_id", messageID), zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, target := range targets {
		res := s.driver.SendMessage(context.Background(), target, msg.Message)
		s.driver.SendKey(context.Background(), target, "Enter")

		logEntry := &models.MessageDeliveryLog{
			ScheduledMessageID: msg.ID,
			Name:               msg.Name,
			Target:             target,
			Body:               msg.Message,
			SentAt:             now,
			Success:            res.OK,
		}
		if res.Err != nil {
			logEntry.Error = res.Err.Error()
		}
		if err := s.store.AppendDeliveryLog(logEntry); err != nil {
			s.log.Error("failed to append delivery log", zap.Error(err))
		}
	}

	msg.LastRun = &now
	if msg.Recurring {
		next := now.Add(msg.Delay())
		msg.NextRun = &next
		if err := s.store.SaveScheduledMessage(msg); err != nil {
			s.log.Error("failed to persist recurring message", zap.Error(err))
			return
		}
		s.arm(msg.ID, msg.Delay())
		return
	}

	msg.Active = false
	if err := s.store.SaveScheduledMessage(msg); err != nil {
		s.log.Error("failed to deactivate fired message", zap.Error(err))
	}
}

// resolveTargets expands a ScheduledMessage's Target into concrete session
// names: the orchestrator singleton, every member's session in a team, or
// a literal session string.
func (s *Scheduler) resolveTargets(msg *models.ScheduledMessage) ([]string, error) {
	if msg.Target == "orchestrator" {
		return []string{session.OrchestratorSessionName}, nil
	}

	team, err := s.store.GetTeam(msg.Target)
	if err != nil {
		return []string{msg.Target}, nil
	}

	var out []string
	for _, m := range team.Members {
		if m.SessionName != "" {
			out = append(out, m.SessionName)
		}
	}
	return out, nil
}
