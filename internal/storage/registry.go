package storage

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/models"
)

// ListInProgressTasks returns every Task Registry entry.
func (s *Store) ListInProgressTasks() ([]*models.InProgressTask, error) {
	var tasks []*models.InProgressTask
	if err := s.registry.load(&tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetInProgressTaskByPath returns the registry entry whose TaskFilePath
// matches path, or NotFound. TaskFilePath is the registry's uniqueness key.
func (s *Store) GetInProgressTaskByPath(path string) (*models.InProgressTask, error) {
	tasks, err := s.ListInProgressTasks()
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.TaskFilePath == path {
			return t, nil
		}
	}
	return nil, apperrors.NotFound("in-progress task", path)
}

// SaveInProgressTask creates or replaces a registry entry, enforcing the
// uniqueness invariant on TaskFilePath.
func (s *Store) SaveInProgressTask(t *models.InProgressTask) error {
	var tasks []*models.InProgressTask
	return s.registry.withWrite(&tasks, func() error {
		now := time.Now().UTC()
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.AssignedAt.IsZero() {
			t.AssignedAt = now
		}

		for i, existing := range tasks {
			if existing.ID == t.ID {
				tasks[i] = t
				return nil
			}
			if existing.TaskFilePath == t.TaskFilePath && existing.ID != t.ID {
				return apperrors.Conflict("a registry entry already exists for task file " + t.TaskFilePath)
			}
		}
		tasks = append(tasks, t)
		return nil
	})
}

// DeleteInProgressTask removes a registry entry by id.
func (s *Store) DeleteInProgressTask(id string) error {
	var tasks []*models.InProgressTask
	return s.registry.withWrite(&tasks, func() error {
		for i, t := range tasks {
			if t.ID == id {
				tasks = append(tasks[:i], tasks[i+1:]...)
				return nil
			}
		}
		return nil
	})
}

// DeleteInProgressTaskByPath removes the registry entry for path, if any.
func (s *Store) DeleteInProgressTaskByPath(path string) error {
	var tasks []*models.InProgressTask
	return s.registry.withWrite(&tasks, func() error {
		for i, t := range tasks {
			if t.TaskFilePath == path {
				tasks = append(tasks[:i], tasks[i+1:]...)
				return nil
			}
		}
		return nil
	})
}
