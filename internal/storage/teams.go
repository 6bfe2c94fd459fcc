package storage

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/models"
)

// GetTeam returns the team with the given id, or a NotFound error.
func (s *Store) GetTeam(id string) (*models.Team, error) {
	teams, err := s.listTeams()
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperrors.NotFound("team", id)
}

// ListTeams returns every team.
func (s *Store) ListTeams() ([]*models.Team, error) {
	return s.listTeams()
}

func (s *Store) listTeams() ([]*models.Team, error) {
	var teams []*models.Team
	if err := s.teams.load(&teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// SaveTeam creates or replaces a team by id, assigning an id and timestamps
// on first save.
func (s *Store) SaveTeam(t *models.Team) error {
	var teams []*models.Team
	return s.teams.withWrite(&teams, func() error {
		now := time.Now().UTC()
		if t.ID == "" {
			t.ID = uuid.New().String()
			t.CreatedAt = now
		}
		t.UpdatedAt = now

		for i, existing := range teams {
			if existing.ID == t.ID {
				teams[i] = t
				return nil
			}
		}
		teams = append(teams, t)
		return nil
	})
}

// DeleteTeam removes a team by id. Deleting an absent team is a no-op.
func (s *Store) DeleteTeam(id string) error {
	var teams []*models.Team
	return s.teams.withWrite(&teams, func() error {
		for i, t := range teams {
			if t.ID == id {
				teams = append(teams[:i], teams[i+1:]...)
				return nil
			}
		}
		return nil
	})
}
