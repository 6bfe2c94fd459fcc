package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

func TestTeamMemberIsRegistered(t *testing.T) {
	ready := time.Now()
	active := &TeamMember{AgentStatus: v1.AgentStatusActive, ReadyAt: &ready}
	assert.True(t, active.IsRegistered())

	noReadyAt := &TeamMember{AgentStatus: v1.AgentStatusActive}
	assert.False(t, noReadyAt.IsRegistered())

	inactive := &TeamMember{AgentStatus: v1.AgentStatusInactive, ReadyAt: &ready}
	assert.False(t, inactive.IsRegistered())
}

func TestTeamMemberToAPIMirrorsFields(t *testing.T) {
	m := &TeamMember{ID: "m-1", Name: "Dev", Role: v1.RoleDeveloper, AgentStatus: v1.AgentStatusActive}
	api := m.ToAPI()
	assert.Equal(t, "m-1", api.ID)
	assert.Equal(t, v1.AgentStatusActive, api.Status)
	assert.Equal(t, v1.AgentStatusActive, api.AgentStatus)
}

func TestTeamMemberByIDAndMembersByRole(t *testing.T) {
	team := &Team{Members: []*TeamMember{
		{ID: "a", Role: v1.RoleDeveloper},
		{ID: "b", Role: v1.RoleQA},
		{ID: "c", Role: v1.RoleDeveloper},
	}}

	assert.Equal(t, "b", team.MemberByID("b").ID)
	assert.Nil(t, team.MemberByID("missing"))

	devs := team.MembersByRole(v1.RoleDeveloper)
	assert.Len(t, devs, 2)
}

func TestTeamToAPIConvertsMembers(t *testing.T) {
	team := &Team{ID: "t-1", Name: "Alpha", Members: []*TeamMember{{ID: "m-1", Role: v1.RoleDeveloper}}}
	api := team.ToAPI()
	assert.Equal(t, "t-1", api.ID)
	assert.Len(t, api.Members, 1)
	assert.Equal(t, "m-1", api.Members[0].ID)
}

func TestProjectAssignTeamIsIdempotentAndOrdered(t *testing.T) {
	p := &Project{ID: "p-1"}
	p.AssignTeam(v1.RoleDeveloper, "team-1")
	p.AssignTeam(v1.RoleDeveloper, "team-2")
	p.AssignTeam(v1.RoleDeveloper, "team-1") // duplicate, no-op

	ids := p.TeamIDsForRole(v1.RoleDeveloper)
	assert.Equal(t, []string{"team-1", "team-2"}, ids)
}

func TestProjectIsActive(t *testing.T) {
	active := &Project{Status: v1.ProjectStatusActive}
	assert.True(t, active.IsActive())

	paused := &Project{Status: v1.ProjectStatus("paused")}
	assert.False(t, paused.IsActive())
}

func TestProjectToAPIConvertsTeamsMap(t *testing.T) {
	p := &Project{ID: "p-1"}
	p.AssignTeam(v1.RoleQA, "team-1")
	api := p.ToAPI()
	assert.Equal(t, []string{"team-1"}, api.Teams[string(v1.RoleQA)])
}

func TestInProgressTaskToAPIMirrorsFields(t *testing.T) {
	task := &InProgressTask{ID: "e-1", TaskFilePath: "open/a.md", Status: v1.RegistryStatusBlocked, BlockReason: "waiting"}
	api := task.ToAPI()
	assert.Equal(t, "e-1", api.ID)
	assert.Equal(t, "waiting", api.BlockReason)
}

func TestScheduledMessageDelay(t *testing.T) {
	seconds := &ScheduledMessage{DelayAmount: 30, DelayUnit: v1.DelayUnitSeconds}
	assert.Equal(t, 30*time.Second, seconds.Delay())

	hours := &ScheduledMessage{DelayAmount: 2, DelayUnit: v1.DelayUnitHours}
	assert.Equal(t, 2*time.Hour, hours.Delay())

	minutes := &ScheduledMessage{DelayAmount: 5, DelayUnit: v1.DelayUnit("minutes")}
	assert.Equal(t, 5*time.Minute, minutes.Delay())
}

func TestMessageDeliveryLogToAPI(t *testing.T) {
	log := &MessageDeliveryLog{ScheduledMessageID: "msg-1", Target: "session-1", Success: true}
	api := log.ToAPI()
	assert.Equal(t, "msg-1", api.ScheduledMessageID)
	assert.True(t, api.Success)
}

func TestRuntimeRegistrationIsFresh(t *testing.T) {
	now := time.Now()
	reg := &RuntimeRegistration{ReceivedAt: now.Add(-10 * time.Second)}
	assert.True(t, reg.IsFresh(now, 30*time.Second))
	assert.False(t, reg.IsFresh(now, 5*time.Second))
}

func TestOrchestratorStatusToAPI(t *testing.T) {
	status := &OrchestratorStatus{SessionID: "orc-0", AgentStatus: v1.AgentStatusActive}
	api := status.ToAPI()
	assert.Equal(t, "orc-0", api.SessionID)
	assert.Equal(t, v1.AgentStatusActive, api.AgentStatus)
}
