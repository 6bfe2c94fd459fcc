package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

func TestRoleConfigForKnownRole(t *testing.T) {
	cfg := RoleConfigFor(v1.RoleDeveloper)
	assert.Equal(t, v1.RoleDeveloper, cfg.Role)
	assert.Equal(t, 30, cfg.DefaultCheckInMinutes)
	assert.False(t, cfg.TPMFileGatingApplies)
}

func TestRoleConfigForTPMAppliesFileGating(t *testing.T) {
	cfg := RoleConfigFor(v1.RoleTPM)
	assert.True(t, cfg.TPMFileGatingApplies)
}

func TestRoleConfigForUnknownRolePanics(t *testing.T) {
	assert.Panics(t, func() {
		RoleConfigFor(v1.Role("not-a-role"))
	})
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(v1.RoleQA))
	assert.False(t, IsValidRole(v1.Role("not-a-role")))
}

func TestAllRolesCoversEveryKnownRole(t *testing.T) {
	roles := AllRoles()
	require.NotEmpty(t, roles)
	assert.Contains(t, roles, v1.RoleOrchestrator)
	assert.Contains(t, roles, v1.RoleDeveloper)
	assert.Contains(t, roles, v1.RoleDesigner)
}

func TestBuildSystemPromptIncludesProjectAndSession(t *testing.T) {
	prompt := BuildSystemPrompt(v1.RoleDeveloper, "/repo/agentmux", "agentmux-dev-0")
	assert.True(t, strings.Contains(prompt, "/repo/agentmux"))
	assert.True(t, strings.Contains(prompt, "agentmux-dev-0"))
	assert.True(t, strings.Contains(prompt, RoleConfigFor(v1.RoleDeveloper).DefaultSystemPrompt))
}
