package models

import (
	"time"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// TeamMember is one role-typed agent within a Team. SessionName is empty
// until the Supervisor creates its terminal session.
type TeamMember struct {
	ID                 string
	Name               string
	Role               v1.Role
	SystemPrompt       string
	SessionName        string
	AgentStatus        v1.AgentStatus
	WorkingStatus       v1.WorkingStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ReadyAt            *time.Time
	LastActivityCheck  *time.Time
	LastTerminalOutput string
	Capabilities       []string
}

// ToAPI converts a TeamMember to its wire representation.
func (m *TeamMember) ToAPI() v1.TeamMember {
	return v1.TeamMember{
		ID:                 m.ID,
		Name:               m.Name,
		Role:               m.Role,
		SystemPrompt:       m.SystemPrompt,
		SessionName:        m.SessionName,
		AgentStatus:        m.AgentStatus,
		Status:             m.AgentStatus,
		WorkingStatus:      m.WorkingStatus,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		ReadyAt:            m.ReadyAt,
		LastActivityCheck:  m.LastActivityCheck,
		LastTerminalOutput: m.LastTerminalOutput,
		Capabilities:       m.Capabilities,
	}
}

// IsRegistered reports whether the member has completed self-registration.
func (m *TeamMember) IsRegistered() bool {
	return m.AgentStatus == v1.AgentStatusActive && m.ReadyAt != nil
}

// Team is a named collection of TeamMembers, optionally bound to a project.
type Team struct {
	ID             string
	Name           string
	Description    string
	Members        []*TeamMember
	CurrentProject *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ToAPI converts a Team to its wire representation.
func (t *Team) ToAPI() v1.Team {
	members := make([]v1.TeamMember, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, m.ToAPI())
	}
	return v1.Team{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		Members:        members,
		CurrentProject: t.CurrentProject,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// MemberByID returns the member with the given id, or nil.
func (t *Team) MemberByID(id string) *TeamMember {
	for _, m := range t.Members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// MembersByRole returns every member with the given role, in team order.
func (t *Team) MembersByRole(role v1.Role) []*TeamMember {
	var out []*TeamMember
	for _, m := range t.Members {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}
