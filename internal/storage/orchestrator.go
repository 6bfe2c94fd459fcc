package storage

import (
	"time"

	"github.com/agentmux/agentmux-core/internal/models"
)

// GetOrchestratorStatus returns the orchestrator singleton's status, or nil
// if the orchestrator session has never been created.
func (s *Store) GetOrchestratorStatus() (*models.OrchestratorStatus, error) {
	var status *models.OrchestratorStatus
	if err := s.orch.load(&status); err != nil {
		return nil, err
	}
	return status, nil
}

// SaveOrchestratorStatus replaces the orchestrator singleton's status.
func (s *Store) SaveOrchestratorStatus(status *models.OrchestratorStatus) error {
	var current *models.OrchestratorStatus
	return s.orch.withWrite(&current, func() error {
		if status.CreatedAt.IsZero() {
			if current != nil {
				status.CreatedAt = current.CreatedAt
			} else {
				status.CreatedAt = time.Now().UTC()
			}
		}
		status.UpdatedAt = time.Now().UTC()
		current = status
		return nil
	})
}
