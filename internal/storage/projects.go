package storage

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/models"
)

// GetProject returns the project with the given id, or a NotFound error.
func (s *Store) GetProject(id string) (*models.Project, error) {
	projects, err := s.listProjects()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("project", id)
}

// ListProjects returns every project.
func (s *Store) ListProjects() ([]*models.Project, error) {
	return s.listProjects()
}

func (s *Store) listProjects() ([]*models.Project, error) {
	var projects []*models.Project
	if err := s.projects.load(&projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// SaveProject creates or replaces a project by id.
func (s *Store) SaveProject(p *models.Project) error {
	var projects []*models.Project
	return s.projects.withWrite(&projects, func() error {
		now := time.Now().UTC()
		if p.ID == "" {
			p.ID = uuid.New().String()
			p.CreatedAt = now
		}
		p.UpdatedAt = now

		for i, existing := range projects {
			if existing.ID == p.ID {
				projects[i] = p
				return nil
			}
		}
		projects = append(projects, p)
		return nil
	})
}

// DeleteProject removes a project by id.
func (s *Store) DeleteProject(id string) error {
	var projects []*models.Project
	return s.projects.withWrite(&projects, func() error {
		for i, p := range projects {
			if p.ID == id {
				projects = append(projects[:i], projects[i+1:]...)
				return nil
			}
		}
		return nil
	})
}
