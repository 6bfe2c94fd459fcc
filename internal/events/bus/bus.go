// Package bus provides an in-process publish/subscribe event bus used to
// fan internal state changes (team/task/session transitions) out to the
// HTTP/WS facade and other in-process listeners. spec.md's Non-goals
// exclude distributed operation, so this bus has no network transport.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one message published on the bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent builds an Event with a fresh id and the current timestamp.
func NewEvent(eventType, source string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventHandler processes one delivered Event.
type EventHandler func(ctx context.Context, event *Event) error

// Subscription is a handle returned by Subscribe/QueueSubscribe.
type Subscription interface {
	Unsubscribe() error
	IsValid() bool
}

// EventBus is the in-process publish/subscribe surface every producer and
// consumer in agentmux-core depends on.
type EventBus interface {
	// Publish delivers event to every subscription whose subject pattern
	// matches subject.
	Publish(ctx context.Context, subject string, event *Event) error
	// Subscribe registers handler for every event published to subject
	// (subject may contain "*" for one token or ">" for the remainder).
	Subscribe(subject string, handler EventHandler) (Subscription, error)
	// QueueSubscribe registers handler in a named queue group: only one
	// member of the group receives each matching event, round-robin.
	QueueSubscribe(subject, queue string, handler EventHandler) (Subscription, error)
	// Close deactivates every subscription.
	Close()
	// IsConnected reports whether the bus still accepts publishes.
	IsConnected() bool
}

// Subjects used across agentmux-core, collected here so producers and
// consumers share one vocabulary instead of restating string literals.
const (
	SubjectTeamCreated        = "team.created"
	SubjectTeamStarted        = "team.started"
	SubjectTeamStopped        = "team.stopped"
	SubjectMemberStatusChanged = "team.member.status_changed"
	SubjectTaskAssigned       = "task.assigned"
	SubjectTaskCompleted      = "task.completed"
	SubjectTaskBlocked        = "task.blocked"
	SubjectScheduleFired      = "schedule.fired"
)
