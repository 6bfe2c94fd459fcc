// Package models holds the core domain entities shared across agentmux-core:
// teams, members, projects, scheduled messages, and task-folder records.
package models

import (
	"fmt"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// RoleConfig is one row of the role-dispatch table: per-role defaults the
// Supervisor and Orchestrator consult instead of branching on role strings.
type RoleConfig struct {
	Role                v1.Role
	DisplayName         string
	DefaultSystemPrompt string
	// DefaultCheckInMinutes is the default recurring check-in cadence. Zero
	// means the role is exempt from default check-in scheduling.
	DefaultCheckInMinutes int
	// TPMFileGatingApplies marks the role eligible for the file-gated
	// build-spec/build-tasks workflow when Workflow.TPMFileGatingEnabled.
	TPMFileGatingApplies bool
}

// roleTable is the closed registry backing RoleConfigFor. Every member of
// spec.md's role enum must have an entry; an unknown role is a bug, not a
// runtime condition, so RoleConfigFor panics on a miss.
var roleTable = map[v1.Role]RoleConfig{
	v1.RoleOrchestrator: {
		Role:                  v1.RoleOrchestrator,
		DisplayName:           "Orchestrator",
		DefaultSystemPrompt:   "You are the orchestrator for this project. Coordinate team members, assign tasks, and track progress.",
		DefaultCheckInMinutes: 0,
		TPMFileGatingApplies:  false,
	},
	v1.RoleTPM: {
		Role:                  v1.RoleTPM,
		DisplayName:           "Technical Program Manager",
		DefaultSystemPrompt:   "You are the TPM for this project. Break down specs into tasks and keep the milestone folders current.",
		DefaultCheckInMinutes: 0,
		TPMFileGatingApplies:  true,
	},
	v1.RolePGM: {
		Role:                  v1.RolePGM,
		DisplayName:           "Program Manager",
		DefaultSystemPrompt:   "You are the program manager. Track cross-team dependencies and escalate blockers.",
		DefaultCheckInMinutes: 30,
		TPMFileGatingApplies:  false,
	},
	v1.RoleDeveloper: {
		Role:                  v1.RoleDeveloper,
		DisplayName:           "Developer",
		DefaultSystemPrompt:   "You are a developer on this project. Pick up open tasks targeted at your role, implement them, and commit your work.",
		DefaultCheckInMinutes: 30,
		TPMFileGatingApplies:  false,
	},
	v1.RoleFrontendDeveloper: {
		Role:                  v1.RoleFrontendDeveloper,
		DisplayName:           "Frontend Developer",
		DefaultSystemPrompt:   "You are a frontend developer. Pick up open tasks targeted at your role, implement them, and commit your work.",
		DefaultCheckInMinutes: 30,
		TPMFileGatingApplies:  false,
	},
	v1.RoleBackendDeveloper: {
		Role:                  v1.RoleBackendDeveloper,
		DisplayName:           "Backend Developer",
		DefaultSystemPrompt:   "You are a backend developer. Pick up open tasks targeted at your role, implement them, and commit your work.",
		DefaultCheckInMinutes: 30,
		TPMFileGatingApplies:  false,
	},
	v1.RoleQA: {
		Role:                  v1.RoleQA,
		DisplayName:           "QA Engineer",
		DefaultSystemPrompt:   "You are a QA engineer. Verify completed tasks and file blockers for regressions.",
		DefaultCheckInMinutes: 30,
		TPMFileGatingApplies:  false,
	},
	v1.RoleTester: {
		Role:                  v1.RoleTester,
		DisplayName:           "Tester",
		DefaultSystemPrompt:   "You are a tester. Exercise completed work and report defects as blocked tasks.",
		DefaultCheckInMinutes: 30,
		TPMFileGatingApplies:  false,
	},
	v1.RoleDesigner: {
		Role:                  v1.RoleDesigner,
		DisplayName:           "Designer",
		DefaultSystemPrompt:   "You are a designer. Pick up design tasks and produce assets or specs for the team.",
		DefaultCheckInMinutes: 30,
		TPMFileGatingApplies:  false,
	},
}

// RoleConfigFor returns the dispatch row for role. Panics on an unknown role
// since the role enum is closed and validated at the API boundary.
func RoleConfigFor(role v1.Role) RoleConfig {
	cfg, ok := roleTable[role]
	if !ok {
		panic(fmt.Sprintf("models: unknown role %q", role))
	}
	return cfg
}

// IsValidRole reports whether role is a member of the closed role enum.
func IsValidRole(role v1.Role) bool {
	_, ok := roleTable[role]
	return ok
}

// AllRoles returns every role in the dispatch table, for validation and
// iteration (e.g. default check-in scheduling across a team).
func AllRoles() []v1.Role {
	roles := make([]v1.Role, 0, len(roleTable))
	for r := range roleTable {
		roles = append(roles, r)
	}
	return roles
}

// BuildSystemPrompt renders the role's default prompt, appending the project
// path and session name the way the Supervisor's direct-prompt step requires.
func BuildSystemPrompt(role v1.Role, projectPath, sessionName string) string {
	cfg := RoleConfigFor(role)
	return fmt.Sprintf("%s\n\nProject path: %s\nSession: %s\nRegister your session by calling the runtime registration endpoint with role=%q once ready.",
		cfg.DefaultSystemPrompt, projectPath, sessionName, role)
}
