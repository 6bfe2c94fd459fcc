package models

import (
	"time"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// RuntimeRegistration is one self-registration ping recorded in
// runtime.json, keyed by role. It is the registration oracle the
// Supervisor polls during its direct-prompt escalation step.
type RuntimeRegistration struct {
	Role      v1.Role
	SessionID string
	MemberID  string
	Status    string
	ReceivedAt time.Time
}

// IsFresh reports whether the registration was received within window of now.
func (r *RuntimeRegistration) IsFresh(now time.Time, window time.Duration) bool {
	return now.Sub(r.ReceivedAt) <= window
}
