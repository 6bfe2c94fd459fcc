package storage

import (
	"time"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"

	"github.com/agentmux/agentmux-core/internal/models"
)

// RecordRegistration writes a self-registration ping, replacing any prior
// ping for the same role (the registry keeps only the latest per role).
func (s *Store) RecordRegistration(reg *models.RuntimeRegistration) error {
	var regs map[v1.Role]*models.RuntimeRegistration
	return s.runtime.withWrite(&regs, func() error {
		if regs == nil {
			regs = make(map[v1.Role]*models.RuntimeRegistration)
		}
		if reg.ReceivedAt.IsZero() {
			reg.ReceivedAt = time.Now().UTC()
		}
		regs[reg.Role] = reg
		return nil
	})
}

// GetRegistration returns the latest registration ping for role, or nil
// if none has been recorded.
func (s *Store) GetRegistration(role v1.Role) (*models.RuntimeRegistration, error) {
	var regs map[v1.Role]*models.RuntimeRegistration
	if err := s.runtime.load(&regs); err != nil {
		return nil, err
	}
	return regs[role], nil
}
