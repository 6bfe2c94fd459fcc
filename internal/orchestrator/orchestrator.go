// Package orchestrator implements the Orchestration API (C9): the
// operation surface the HTTP facade calls into for team, project, and task
// lifecycle. It composes the Session Driver, Task-Folder Store, Task
// Registry, Scheduler, and Agent Supervisor into the handful of verbs
// spec.md names — createTeam, startTeam, stopTeam, assignTeamsToProject,
// startTeamMember/stopTeamMember, assignTask/completeTask/blockTask,
// takeNextTask, and syncTaskStatus.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/events/bus"
	"github.com/agentmux/agentmux-core/internal/models"
	"github.com/agentmux/agentmux-core/internal/scheduler"
	"github.com/agentmux/agentmux-core/internal/session"
	"github.com/agentmux/agentmux-core/internal/storage"
	"github.com/agentmux/agentmux-core/internal/supervisor"
	"github.com/agentmux/agentmux-core/internal/taskfolder"
	"github.com/agentmux/agentmux-core/internal/taskregistry"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// TeamStore is the team-lifecycle persistence surface.
type TeamStore interface {
	GetTeam(id string) (*models.Team, error)
	ListTeams() ([]*models.Team, error)
	SaveTeam(t *models.Team) error
	DeleteTeam(id string) error
}

// ProjectStore is the project persistence surface.
type ProjectStore interface {
	GetProject(id string) (*models.Project, error)
	ListProjects() ([]*models.Project, error)
	SaveProject(p *models.Project) error
}

// RegistryLister is the narrow read surface the Orchestrator needs on top
// of taskregistry.Registry's own Storage dependency, to look entries up by
// id or path without the registry exposing a raw list of its own, plus the
// sqlite-backed ticket index so a sync can repopulate it and a handler can
// query it without either reaching into storage.Store directly.
type RegistryLister interface {
	ListInProgressTasks() ([]*models.InProgressTask, error)
	GetTickets(projectPath string, filter storage.TicketFilter) ([]*models.TaskFileInfo, error)
	RefreshTickets(projectPath string, tickets []*models.TaskFileInfo) error
}

// Orchestrator wires together every component that team/task lifecycle
// operations touch.
type Orchestrator struct {
	teams    TeamStore
	projects ProjectStore
	sup      *supervisor.Supervisor
	sched    *scheduler.Scheduler
	registry       *taskregistry.Registry
	registryLister RegistryLister
	folder         *taskfolder.Store
	driver         *session.Driver
	events         bus.EventBus
	log            *logger.Logger
}

// New builds an Orchestrator.
func New(teams TeamStore, projects ProjectStore, sup *supervisor.Supervisor, sched *scheduler.Scheduler, registry *taskregistry.Registry, registryLister RegistryLister, folder *taskfolder.Store, driver *session.Driver, events bus.EventBus, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		teams:          teams,
		projects:       projects,
		sup:            sup,
		sched:          sched,
		registry:       registry,
		registryLister: registryLister,
		folder:         folder,
		driver:         driver,
		events:         events,
		log:            log.WithFields(zap.String("component", "orchestrator")),
	}
}

// MemberSpec is one member to seed onto a new team.
type MemberSpec struct {
	Name string
	Role v1.Role
}

// CreateTeam validates name uniqueness, assigns ids to every requested
// member, and persists the team with every session left unstarted.
func (o *Orchestrator) CreateTeam(name, description string, members []MemberSpec) (*models.Team, error) {
	existing, err := o.teams.ListTeams()
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		if t.Name == name {
			return nil, apperrors.Conflict(fmt.Sprintf("a team named %q already exists", name))
		}
	}

	team := &models.Team{Name: name, Description: description}
	for _, spec := range members {
		if !models.IsValidRole(spec.Role) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", spec.Role))
		}
		cfg := models.RoleConfigFor(spec.Role)
		team.Members = append(team.Members, &models.TeamMember{
			ID:           uuid.New().String(),
			Name:         spec.Name,
			Role:         spec.Role,
			SystemPrompt: cfg.DefaultSystemPrompt,
			AgentStatus:  v1.AgentStatusInactive,
			WorkingStatus: v1.WorkingStatusIdle,
		})
	}

	if err := o.teams.SaveTeam(team); err != nil {
		return nil, err
	}
	o.publish(bus.SubjectTeamCreated, map[string]interface{}{"team_id": team.ID, "name": team.Name})
	return team, nil
}

// MemberStartResult pairs a supervisor InitResult with any check-in message
// id armed for that member.
type MemberStartResult struct {
	supervisor.InitResult
	CheckInMessageID string
}

// StartResult is the outcome of StartTeam.
type StartResult struct {
	Team    *models.Team
	Members []MemberStartResult
}

// StartTeam resolves projectID (if given) to a project path, batch-creates
// every member's session via the Supervisor, and arms each role's default
// check-in cadence now that a live session exists to check in on.
func (o *Orchestrator) StartTeam(ctx context.Context, teamID string, projectID *string) (*StartResult, error) {
	team, err := o.teams.GetTeam(teamID)
	if err != nil {
		return nil, err
	}

	var projectPath string
	if projectID != nil {
		project, err := o.projects.GetProject(*projectID)
		if err != nil {
			return nil, err
		}
		projectPath = project.Path
		team.CurrentProject = projectID
	}

	initResults := o.sup.BatchInitialize(ctx, team.Members, projectPath)

	result := &StartResult{Team: team}
	for i, r := range initResults {
		msr := MemberStartResult{InitResult: r}
		if r.OK {
			cfg := models.RoleConfigFor(team.Members[i].Role)
			msgID, err := o.sched.ScheduleDefaultCheckins(team.Members[i].SessionName, team.Members[i].Role, cfg.DefaultCheckInMinutes)
			if err != nil {
				o.log.Warn("failed to arm default check-in", zap.String("member_id", team.Members[i].ID), zap.Error(err))
			}
			msr.CheckInMessageID = msgID
			o.publish(bus.SubjectMemberStatusChanged, map[string]interface{}{"member_id": team.Members[i].ID, "status": string(v1.AgentStatusActive)})
		}
		result.Members = append(result.Members, msr)
	}

	if err := o.teams.SaveTeam(team); err != nil {
		return nil, err
	}
	o.publish(bus.SubjectTeamStarted, map[string]interface{}{"team_id": team.ID})
	return result, nil
}

// StopTeam kills every member's session, clears its session name, and
// cancels any scheduled messages targeting it.
func (o *Orchestrator) StopTeam(ctx context.Context, teamID string) error {
	team, err := o.teams.GetTeam(teamID)
	if err != nil {
		return err
	}

	for _, m := range team.Members {
		if m.SessionName == "" {
			continue
		}
		o.driver.Kill(ctx, m.SessionName)
		if err := o.sched.CancelAllChecksForSession(m.SessionName); err != nil {
			o.log.Warn("failed to cancel scheduled messages", zap.String("session", m.SessionName), zap.Error(err))
		}
		m.SessionName = ""
		m.AgentStatus = v1.AgentStatusInactive
		m.WorkingStatus = v1.WorkingStatusIdle
	}

	if err := o.teams.SaveTeam(team); err != nil {
		return err
	}
	o.publish(bus.SubjectTeamStopped, map[string]interface{}{"team_id": team.ID})
	return nil
}

// AssignTeamsToProject binds teamID to projectID under role.
func (o *Orchestrator) AssignTeamsToProject(projectID string, role v1.Role, teamID string) error {
	project, err := o.projects.GetProject(projectID)
	if err != nil {
		return err
	}
	if _, err := o.teams.GetTeam(teamID); err != nil {
		return err
	}
	project.AssignTeam(role, teamID)
	return o.projects.SaveProject(project)
}

// StartTeamMember initializes a single member within an already-created
// team, for use after a team has partially started.
func (o *Orchestrator) StartTeamMember(ctx context.Context, teamID, memberID, projectPath string) (*supervisor.InitResult, error) {
	team, err := o.teams.GetTeam(teamID)
	if err != nil {
		return nil, err
	}
	member := team.MemberByID(memberID)
	if member == nil {
		return nil, apperrors.NotFound("team member", memberID)
	}

	res := o.sup.InitializeMember(ctx, member, projectPath)
	if err := o.teams.SaveTeam(team); err != nil {
		return nil, err
	}
	if res.OK {
		o.publish(bus.SubjectMemberStatusChanged, map[string]interface{}{"member_id": member.ID, "status": string(v1.AgentStatusActive)})
	}
	return &res, nil
}

// StopTeamMember kills one member's session.
func (o *Orchestrator) StopTeamMember(ctx context.Context, teamID, memberID string) error {
	team, err := o.teams.GetTeam(teamID)
	if err != nil {
		return err
	}
	member := team.MemberByID(memberID)
	if member == nil {
		return apperrors.NotFound("team member", memberID)
	}

	if member.SessionName != "" {
		o.driver.Kill(ctx, member.SessionName)
		o.sched.CancelAllChecksForSession(member.SessionName)
	}
	member.SessionName = ""
	member.AgentStatus = v1.AgentStatusInactive
	member.WorkingStatus = v1.WorkingStatusIdle
	return o.teams.SaveTeam(team)
}

// AssignTask registers filePath as assigned to memberID/sessionID for role.
// Idempotent on the (filePath, role, memberID) triple: re-assigning the
// same file to the same member and role returns the existing entry rather
// than erroring; assigning an already-assigned file to a different member
// or role is a genuine conflict.
func (o *Orchestrator) AssignTask(projectID, filePath, taskName string, role v1.Role, memberID, sessionID string) (*models.InProgressTask, error) {
	entry, err := o.registry.AssignTask(projectID, filePath, taskName, role, memberID, sessionID)
	if err == nil {
		o.publish(bus.SubjectTaskAssigned, map[string]interface{}{"task_file": filePath, "member_id": memberID})
		if project, perr := o.projects.GetProject(projectID); perr == nil {
			o.refreshTicketIndex(project.Path)
		}
		return entry, nil
	}

	appErr, ok := err.(*apperrors.AppError)
	if !ok || appErr.Code != apperrors.ErrCodeConflict {
		return nil, err
	}

	existing, getErr := o.findRegistryEntryByPath(filePath)
	if getErr != nil {
		return nil, err
	}
	if existing.TargetRole == role && existing.AssignedMemberID == memberID {
		return existing, nil
	}
	return nil, err
}

// CompleteTask marks a registry entry done and moves its task file into
// the done/ folder.
func (o *Orchestrator) CompleteTask(entryID string) error {
	entry, err := o.findRegistryEntry(entryID)
	if err != nil {
		return err
	}
	if _, err := o.folder.MoveTaskToStatus(entry.TaskFilePath, v1.TaskStatusDone); err != nil {
		return err
	}
	if err := o.registry.UpdateStatus(entryID, "done", ""); err != nil {
		return err
	}
	o.publish(bus.SubjectTaskCompleted, map[string]interface{}{"task_file": entry.TaskFilePath})
	if project, perr := o.projects.GetProject(entry.ProjectID); perr == nil {
		o.refreshTicketIndex(project.Path)
	}
	return nil
}

// BlockTask marks a registry entry blocked with reason and moves its task
// file into the blocked/ folder.
func (o *Orchestrator) BlockTask(entryID, reason string) error {
	entry, err := o.findRegistryEntry(entryID)
	if err != nil {
		return err
	}
	if _, err := o.folder.MoveTaskToStatus(entry.TaskFilePath, v1.TaskStatusBlocked); err != nil {
		return err
	}
	if err := o.registry.UpdateStatus(entryID, v1.RegistryStatusBlocked, reason); err != nil {
		return err
	}
	o.publish(bus.SubjectTaskBlocked, map[string]interface{}{"task_file": entry.TaskFilePath, "reason": reason})
	if project, perr := o.projects.GetProject(entry.ProjectID); perr == nil {
		o.refreshTicketIndex(project.Path)
	}
	return nil
}

// TakeNextTask returns the next open task file for projectID, preferring
// one targeted at memberRole but falling back to any open task.
func (o *Orchestrator) TakeNextTask(projectID string, memberRole v1.Role) (*models.TaskFileInfo, error) {
	project, err := o.projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	open, err := o.registry.GetOpenTasks(project.Path)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}

	for _, t := range open {
		if t.TargetRole == memberRole {
			return t, nil
		}
	}
	return open[0], nil
}

// SyncTaskStatus reconciles the Task Registry against the on-disk
// task-folder tree for projectID.
func (o *Orchestrator) SyncTaskStatus(projectID string) error {
	project, err := o.projects.GetProject(projectID)
	if err != nil {
		return err
	}
	if err := o.registry.SyncWithFileSystem(project.Path, projectID); err != nil {
		return err
	}
	o.refreshTicketIndex(project.Path)
	return nil
}

// GetTickets answers getTickets(projectPath, filter) against the ticket
// index cache, refreshing it first so results reflect the current
// task-folder tree.
func (o *Orchestrator) GetTickets(projectID string, filter storage.TicketFilter) ([]*models.TaskFileInfo, error) {
	project, err := o.projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	o.refreshTicketIndex(project.Path)
	return o.registryLister.GetTickets(project.Path, filter)
}

// refreshTicketIndex re-scans every status folder under projectPath and
// repopulates the ticket index cache from it. A failure here is logged, not
// returned: the index is a read cache, and the task-folder tree remains the
// source of truth even if a refresh is momentarily stale.
func (o *Orchestrator) refreshTicketIndex(projectPath string) {
	var tickets []*models.TaskFileInfo
	for _, status := range []v1.TaskStatus{v1.TaskStatusOpen, v1.TaskStatusInProgress, v1.TaskStatusBlocked, v1.TaskStatusDone} {
		found, err := o.folder.ListByStatus(projectPath, status)
		if err != nil {
			o.log.Warn("failed to list task files for ticket index refresh", zap.String("project_path", projectPath), zap.Error(err))
			return
		}
		tickets = append(tickets, found...)
	}
	if err := o.registryLister.RefreshTickets(projectPath, tickets); err != nil {
		o.log.Warn("failed to refresh ticket index", zap.String("project_path", projectPath), zap.Error(err))
	}
}

func (o *Orchestrator) findRegistryEntry(entryID string) (*models.InProgressTask, error) {
	entries, err := o.registryEntries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == entryID {
			return e, nil
		}
	}
	return nil, apperrors.NotFound("registry entry", entryID)
}

func (o *Orchestrator) findRegistryEntryByPath(path string) (*models.InProgressTask, error) {
	entries, err := o.registryEntries()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.TaskFilePath == path {
			return e, nil
		}
	}
	return nil, apperrors.NotFound("registry entry", path)
}

func (o *Orchestrator) registryEntries() ([]*models.InProgressTask, error) {
	return o.registryLister.ListInProgressTasks()
}

func (o *Orchestrator) publish(subject string, data map[string]interface{}) {
	if o.events == nil {
		return
	}
	evt := bus.NewEvent(subject, "orchestrator", data)
	if err := o.events.Publish(context.Background(), subject, evt); err != nil {
		o.log.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
