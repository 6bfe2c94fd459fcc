// Package api provides the HTTP/WS Facade (C10): gin handlers over the
// Orchestration API, plus a websocket hub that fans bus events out to
// connected clients.
package api

import v1 "github.com/agentmux/agentmux-core/pkg/api/v1"

// CreateTeamRequest creates a team with an initial member roster.
type CreateTeamRequest struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Members     []CreateMemberSpec   `json:"members"`
}

// CreateMemberSpec is one member seeded onto a new team.
type CreateMemberSpec struct {
	Name string  `json:"name" binding:"required"`
	Role v1.Role `json:"role" binding:"required"`
}

// StartTeamRequest optionally binds a team's start to a project.
type StartTeamRequest struct {
	ProjectID *string `json:"projectId,omitempty"`
}

// AssignTeamRequest assigns a team to a project under a role.
type AssignTeamRequest struct {
	Role   v1.Role `json:"role" binding:"required"`
	TeamID string  `json:"teamId" binding:"required"`
}

// CreateProjectRequest creates a project rooted at a filesystem path.
type CreateProjectRequest struct {
	Name string `json:"name" binding:"required"`
	Path string `json:"path" binding:"required"`
}

// AssignTaskRequest registers a task file as assigned.
type AssignTaskRequest struct {
	ProjectID string  `json:"projectId" binding:"required"`
	FilePath  string  `json:"filePath" binding:"required"`
	TaskName  string  `json:"taskName"`
	Role      v1.Role `json:"role" binding:"required"`
	MemberID  string  `json:"memberId" binding:"required"`
	SessionID string  `json:"sessionId"`
}

// BlockTaskRequest blocks a registry entry with a reason.
type BlockTaskRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// TakeNextTaskRequest requests the next open task for a role.
type TakeNextTaskRequest struct {
	Role v1.Role `json:"role" binding:"required"`
}

// RegisterAgentRequest is the runtime self-registration callback body an
// agent posts once its session is ready to receive work.
type RegisterAgentRequest struct {
	Role      v1.Role `json:"role" binding:"required"`
	SessionID string  `json:"sessionId" binding:"required"`
	MemberID  string  `json:"memberId"`
}

// TakeQueuedAssignmentRequest pulls the next AssignmentQueue entry for role
// and assigns it to the requesting member/session.
type TakeQueuedAssignmentRequest struct {
	Role      v1.Role `json:"role" binding:"required"`
	MemberID  string  `json:"memberId" binding:"required"`
	SessionID string  `json:"sessionId"`
}

// RetryWorkflowStepRequest re-delivers one workflow step's prompts.
type RetryWorkflowStepRequest struct {
	TargetSession string `json:"targetSession" binding:"required"`
	ProjectName   string `json:"projectName"`
	ProjectID     string `json:"projectId"`
	ProjectPath   string `json:"projectPath"`
	InitialGoal   string `json:"initialGoal"`
	UserJourney   string `json:"userJourney"`
	OperationID   string `json:"operationId"`
}

// GenerateTasksRequest synthesizes task files from a workflow config.
type GenerateTasksRequest struct {
	ProjectPath string  `json:"projectPath" binding:"required"`
	MilestoneID string  `json:"milestoneId" binding:"required"`
	TargetRole  v1.Role `json:"targetRole" binding:"required"`
	Priority    int     `json:"priority"`
}

// ScheduleMessageRequest arms a one-shot or recurring scheduled message.
type ScheduleMessageRequest struct {
	Name        string        `json:"name" binding:"required"`
	Target      string        `json:"target" binding:"required"`
	Message     string        `json:"message" binding:"required"`
	DelayAmount int           `json:"delayAmount" binding:"required"`
	DelayUnit   v1.DelayUnit  `json:"delayUnit" binding:"required"`
	Recurring   bool          `json:"recurring"`
}
