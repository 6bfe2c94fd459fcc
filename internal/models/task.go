package models

import (
	"time"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// TaskFrontmatter is the parsed YAML-style header of a task markdown file.
type TaskFrontmatter struct {
	ID             string       `yaml:"id"`
	Title          string       `yaml:"title"`
	Status         v1.TaskStatus `yaml:"status"`
	Priority       v1.TaskPriority `yaml:"priority"`
	TargetRole     v1.Role      `yaml:"targetRole"`
	Dependencies   []string     `yaml:"dependencies"`
	EstimatedHours float64      `yaml:"estimatedHours"`
	MilestoneID    string       `yaml:"milestoneId"`
}

// TaskFileInfo is a TaskFrontmatter plus the on-disk location it was read
// from, as returned by the Task-Folder Store's enumeration calls.
type TaskFileInfo struct {
	TaskFrontmatter
	FilePath string
}

// ToAPI converts a TaskFileInfo to its wire representation.
func (t *TaskFileInfo) ToAPI() v1.TaskFileInfo {
	return v1.TaskFileInfo{
		ID:             t.ID,
		Title:          t.Title,
		Status:         t.Status,
		Priority:       t.Priority,
		TargetRole:     t.TargetRole,
		Dependencies:   t.Dependencies,
		EstimatedHours: t.EstimatedHours,
		MilestoneID:    t.MilestoneID,
		FilePath:       t.FilePath,
	}
}

// InProgressTask is a Task Registry (C4) entry linking a task file's current
// path to its assignment. TaskFilePath is the uniqueness key.
type InProgressTask struct {
	ID                string
	ProjectID         string
	TaskFilePath      string
	TaskName          string
	TargetRole        v1.Role
	AssignedMemberID  string
	AssignedSessionID string
	AssignedAt        time.Time
	Status            v1.RegistryEntryStatus
	BlockReason       string
	Priority          v1.TaskPriority
}

// ToAPI converts an InProgressTask to its wire representation.
func (t *InProgressTask) ToAPI() v1.InProgressTask {
	return v1.InProgressTask{
		ID:                t.ID,
		ProjectID:         t.ProjectID,
		TaskFilePath:      t.TaskFilePath,
		TaskName:          t.TaskName,
		TargetRole:        t.TargetRole,
		AssignedMemberID:  t.AssignedMemberID,
		AssignedSessionID: t.AssignedSessionID,
		AssignedAt:        t.AssignedAt,
		Status:            t.Status,
		BlockReason:       t.BlockReason,
		Priority:          t.Priority,
	}
}

// OrchestratorStatus is the single orchestrator session's registration and
// activity state, tracked separately from ordinary TeamMembers.
type OrchestratorStatus struct {
	SessionID     string
	AgentStatus   v1.AgentStatus
	WorkingStatus v1.WorkingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ToAPI converts an OrchestratorStatus to its wire representation.
func (o *OrchestratorStatus) ToAPI() v1.OrchestratorStatus {
	return v1.OrchestratorStatus{
		SessionID:     o.SessionID,
		AgentStatus:   o.AgentStatus,
		WorkingStatus: o.WorkingStatus,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
