package models

import (
	"time"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// ScheduledMessage is a one-shot or recurring prompt the Scheduler (C5)
// delivers to a team or to the orchestrator singleton.
type ScheduledMessage struct {
	ID            string
	Name          string
	Target        string // team id, or the literal "orchestrator"
	TargetProject *string
	Message       string
	DelayAmount   int
	DelayUnit     v1.DelayUnit
	Recurring     bool
	Active        bool
	LastRun       *time.Time
	NextRun       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ToAPI converts a ScheduledMessage to its wire representation.
func (m *ScheduledMessage) ToAPI() v1.ScheduledMessage {
	return v1.ScheduledMessage{
		ID:            m.ID,
		Name:          m.Name,
		Target:        m.Target,
		TargetProject: m.TargetProject,
		Message:       m.Message,
		DelayAmount:   m.DelayAmount,
		DelayUnit:     m.DelayUnit,
		Recurring:     m.Recurring,
		Active:        m.Active,
		LastRun:       m.LastRun,
		NextRun:       m.NextRun,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// Delay returns the message's delay as a time.Duration.
func (m *ScheduledMessage) Delay() time.Duration {
	n := time.Duration(m.DelayAmount)
	switch m.DelayUnit {
	case v1.DelayUnitSeconds:
		return n * time.Second
	case v1.DelayUnitHours:
		return n * time.Hour
	default: // minutes
		return n * time.Minute
	}
}

// MessageDeliveryLog is an append-only record of one delivery attempt.
type MessageDeliveryLog struct {
	ScheduledMessageID string
	Name               string
	Target             string
	Body               string
	SentAt             time.Time
	Success            bool
	Error              string
}

// ToAPI converts a MessageDeliveryLog to its wire representation.
func (l *MessageDeliveryLog) ToAPI() v1.MessageDeliveryLog {
	return v1.MessageDeliveryLog{
		ScheduledMessageID: l.ScheduledMessageID,
		Name:               l.Name,
		Target:             l.Target,
		Body:               l.Body,
		SentAt:             l.SentAt,
		Success:            l.Success,
		Error:              l.Error,
	}
}
