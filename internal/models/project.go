package models

import (
	"time"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// Project binds a set of teams (indexed by role) to a directory on disk.
// Teams is a mapping from role key to an ordered sequence of team ids so
// that multiple teams may cover the same role (e.g. two developer teams).
type Project struct {
	ID        string
	Name      string
	Path      string
	Teams     map[v1.Role][]string
	Status    v1.ProjectStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ToAPI converts a Project to its wire representation.
func (p *Project) ToAPI() v1.Project {
	teams := make(map[string][]string, len(p.Teams))
	for role, ids := range p.Teams {
		teams[string(role)] = append([]string(nil), ids...)
	}
	return v1.Project{
		ID:        p.ID,
		Name:      p.Name,
		Path:      p.Path,
		Teams:     teams,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// TeamIDsForRole returns the ordered team ids assigned to role, or nil.
func (p *Project) TeamIDsForRole(role v1.Role) []string {
	return p.Teams[role]
}

// AssignTeam appends teamID under role if not already present.
func (p *Project) AssignTeam(role v1.Role, teamID string) {
	if p.Teams == nil {
		p.Teams = make(map[v1.Role][]string)
	}
	for _, id := range p.Teams[role] {
		if id == teamID {
			return
		}
	}
	p.Teams[role] = append(p.Teams[role], teamID)
}

// IsActive reports whether the project currently accepts task dispatch.
func (p *Project) IsActive() bool {
	return p.Status == v1.ProjectStatusActive
}
