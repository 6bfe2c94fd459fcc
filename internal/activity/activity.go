// Package activity implements the Activity Monitor (C7): a periodic loop
// that classifies each active member as idle or in-progress from deltas in
// captured terminal output.
package activity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/models"
	"github.com/agentmux/agentmux-core/internal/session"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// Storage is the persistence surface the Activity Monitor depends on.
type Storage interface {
	ListTeams() ([]*models.Team, error)
	SaveTeam(t *models.Team) error
}

// Monitor polls every active member's session on a fixed interval.
type Monitor struct {
	store    Storage
	driver   *session.Driver
	log      *logger.Logger
	interval time.Duration
	lines    int

	memberLocks sync.Map // member id -> *sync.Mutex
}

// New builds an Activity Monitor polling every interval, capturing the
// trailing lines lines of each member's pane.
func New(store Storage, driver *session.Driver, interval time.Duration, lines int, log *logger.Logger) *Monitor {
	if lines <= 0 {
		lines = 50
	}
	return &Monitor{
		store:    store,
		driver:   driver,
		log:      log.WithFields(zap.String("component", "activity-monitor")),
		interval: interval,
		lines:    lines,
	}
}

// Run polls continuously until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context) {
	teams, err := m.store.ListTeams()
	if err != nil {
		m.log.Error("failed to list teams for activity poll", zap.Error(err))
		return
	}

	for _, team := range teams {
		changed := false
		for _, member := range team.Members {
			if member.AgentStatus != v1.AgentStatusActive || member.SessionName == "" {
				continue
			}
			if m.pollMember(ctx, member) {
				changed = true
			}
		}
		if changed {
			if err := m.store.SaveTeam(team); err != nil {
				m.log.Error("failed to persist team after activity poll", zap.String("team_id", team.ID), zap.Error(err))
			}
		}
	}
}

// pollMember updates member in place and reports whether anything changed.
// Concurrent polls for the same member id are serialized so a slow capture
// never races a faster one writing stale data over it.
func (m *Monitor) pollMember(ctx context.Context, member *models.TeamMember) bool {
	lockIface, _ := m.memberLocks.LoadOrStore(member.ID, &sync.Mutex{})
	lock := lockIface.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	if !m.driver.Exists(ctx, member.SessionName) {
		member.AgentStatus = v1.AgentStatusInactive
		member.WorkingStatus = v1.WorkingStatusIdle
		member.LastTerminalOutput = ""
		member.LastActivityCheck = &now
		return true
	}

	capture, err := m.driver.CapturePane(ctx, member.SessionName, m.lines)
	if err != nil {
		m.log.Warn("failed to capture pane", zap.String("session", member.SessionName), zap.Error(err))
		member.LastActivityCheck = &now
		return true
	}

	if capture != "" && capture != member.LastTerminalOutput {
		member.WorkingStatus = v1.WorkingStatusInProgress
	} else {
		member.WorkingStatus = v1.WorkingStatusIdle
	}
	member.LastTerminalOutput = capture
	member.LastActivityCheck = &now
	return true
}
