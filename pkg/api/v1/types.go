// Package v1 holds the wire-format types served by the HTTP/WS facade.
// Internal packages never serialize their own structs directly; each has
// a ToAPI() converter into these types, following the teacher's convention.
package v1

import "time"

// Role is the closed set of team member roles.
type Role string

const (
	RoleOrchestrator       Role = "orchestrator"
	RoleTPM                Role = "tpm"
	RolePGM                Role = "pgm"
	RoleDeveloper          Role = "developer"
	RoleFrontendDeveloper  Role = "frontend-developer"
	RoleBackendDeveloper   Role = "backend-developer"
	RoleQA                 Role = "qa"
	RoleTester             Role = "tester"
	RoleDesigner           Role = "designer"
)

// AgentStatus is the registration state owned by the Supervisor (C6).
type AgentStatus string

const (
	AgentStatusInactive   AgentStatus = "inactive"
	AgentStatusActivating AgentStatus = "activating"
	AgentStatusActive     AgentStatus = "active"
)

// WorkingStatus is the activity state owned by the Activity Monitor (C7).
type WorkingStatus string

const (
	WorkingStatusIdle       WorkingStatus = "idle"
	WorkingStatusInProgress WorkingStatus = "in_progress"
)

// ProjectStatus is the project lifecycle state.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusPaused    ProjectStatus = "paused"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusStopped   ProjectStatus = "stopped"
)

// TaskStatus is the on-disk task-folder state.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// TaskPriority is the task frontmatter priority.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// RegistryEntryStatus is the Task Registry (C4) assignment status.
type RegistryEntryStatus string

const (
	RegistryStatusAssigned          RegistryEntryStatus = "assigned"
	RegistryStatusActive            RegistryEntryStatus = "active"
	RegistryStatusBlocked           RegistryEntryStatus = "blocked"
	RegistryStatusPendingAssignment RegistryEntryStatus = "pending_assignment"
)

// DelayUnit is the unit a ScheduledMessage's delay is expressed in.
type DelayUnit string

const (
	DelayUnitSeconds DelayUnit = "seconds"
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
)

// TeamMember is the wire representation of a TeamMember.
type TeamMember struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Role               Role          `json:"role"`
	SystemPrompt       string        `json:"systemPrompt"`
	SessionName         string        `json:"sessionName"`
	AgentStatus        AgentStatus   `json:"agentStatus"`
	Status             AgentStatus   `json:"status"` // legacy mirror of AgentStatus
	WorkingStatus      WorkingStatus `json:"workingStatus"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
	ReadyAt            *time.Time    `json:"readyAt,omitempty"`
	LastActivityCheck  *time.Time    `json:"lastActivityCheck,omitempty"`
	LastTerminalOutput string        `json:"lastTerminalOutput,omitempty"`
	Capabilities       []string      `json:"capabilities,omitempty"`
}

// Team is the wire representation of a Team.
type Team struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Members        []TeamMember `json:"members"`
	CurrentProject *string      `json:"currentProject,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Project is the wire representation of a Project.
type Project struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Path      string              `json:"path"`
	Teams     map[string][]string `json:"teams"` // role key -> ordered team ids
	Status    ProjectStatus       `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// ScheduledMessage is the wire representation of a ScheduledMessage.
type ScheduledMessage struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Target        string     `json:"target"` // team id or literal "orchestrator"
	TargetProject *string    `json:"targetProject,omitempty"`
	Message       string     `json:"message"`
	DelayAmount   int        `json:"delayAmount"`
	DelayUnit     DelayUnit  `json:"delayUnit"`
	Recurring     bool       `json:"recurring"`
	Active        bool       `json:"active"`
	LastRun       *time.Time `json:"lastRun,omitempty"`
	NextRun       *time.Time `json:"nextRun,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// MessageDeliveryLog is an append-only delivery attempt record.
type MessageDeliveryLog struct {
	ScheduledMessageID string    `json:"scheduledMessageId"`
	Name               string    `json:"name"`
	Target             string    `json:"target"`
	Body               string    `json:"body"`
	SentAt             time.Time `json:"sentAt"`
	Success            bool      `json:"success"`
	Error              string    `json:"error,omitempty"`
}

// TaskFileInfo describes a parsed on-disk task markdown file.
type TaskFileInfo struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Status          TaskStatus   `json:"status"`
	Priority        TaskPriority `json:"priority"`
	TargetRole      Role         `json:"targetRole"`
	Dependencies    []string     `json:"dependencies,omitempty"`
	EstimatedHours  float64      `json:"estimatedHours,omitempty"`
	MilestoneID     string       `json:"milestoneId"`
	FilePath        string       `json:"filePath"`
}

// InProgressTask is the wire representation of a Task Registry entry.
type InProgressTask struct {
	ID              string              `json:"id"`
	ProjectID       string              `json:"projectId"`
	TaskFilePath    string              `json:"taskFilePath"`
	TaskName        string              `json:"taskName"`
	TargetRole      Role                `json:"targetRole"`
	AssignedMemberID string             `json:"assignedMemberId"`
	AssignedSessionID string            `json:"assignedSessionId"`
	AssignedAt      time.Time           `json:"assignedAt"`
	Status          RegistryEntryStatus `json:"status"`
	BlockReason     string              `json:"blockReason,omitempty"`
	Priority        TaskPriority        `json:"priority"`
}

// OrchestratorStatus is the wire representation of the orchestrator singleton.
type OrchestratorStatus struct {
	SessionID     string        `json:"sessionId"`
	AgentStatus   AgentStatus   `json:"agentStatus"`
	WorkingStatus WorkingStatus `json:"workingStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Result is the envelope every orchestration operation returns.
type Result struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// MemberResult is a per-member outcome in a batch operation.
type MemberResult struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
