package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/models"
	"github.com/agentmux/agentmux-core/internal/orchestrator"
	"github.com/agentmux/agentmux-core/internal/scheduler"
	"github.com/agentmux/agentmux-core/internal/storage"
	"github.com/agentmux/agentmux-core/internal/workflow"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// ProjectStore is the project read/write surface the Handler needs
// directly, beyond what it reaches through the Orchestrator.
type ProjectStore interface {
	GetProject(id string) (*models.Project, error)
	ListProjects() ([]*models.Project, error)
	SaveProject(p *models.Project) error
}

// TeamStore is the team read surface the Handler needs directly.
type TeamStore interface {
	GetTeam(id string) (*models.Team, error)
	ListTeams() ([]*models.Team, error)
}

// Handler holds every dependency the HTTP facade dispatches into.
type Handler struct {
	orc      *orchestrator.Orchestrator
	projects ProjectStore
	teams    TeamStore
	sched    *scheduler.Scheduler
	runtime  RuntimeStore
	engine   *workflow.Engine
	log      *logger.Logger
}

// RuntimeStore records self-registration pings.
type RuntimeStore interface {
	RecordRegistration(reg *models.RuntimeRegistration) error
}

// NewHandler builds a Handler.
func NewHandler(orc *orchestrator.Orchestrator, projects ProjectStore, teams TeamStore, sched *scheduler.Scheduler, runtime RuntimeStore, engine *workflow.Engine, log *logger.Logger) *Handler {
	return &Handler{orc: orc, projects: projects, teams: teams, sched: sched, runtime: runtime, engine: engine, log: log.WithFields(zap.String("component", "api"))}
}

func (h *Handler) fail(c *gin.Context, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		appErr = apperrors.Internal("unexpected error", err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{"error": gin.H{"code": appErr.Code, "message": appErr.Message}})
}

// Teams

// CreateTeam handles POST /api/v1/teams.
func (h *Handler) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}

	specs := make([]orchestrator.MemberSpec, 0, len(req.Members))
	for _, m := range req.Members {
		specs = append(specs, orchestrator.MemberSpec{Name: m.Name, Role: m.Role})
	}

	team, err := h.orc.CreateTeam(req.Name, req.Description, specs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, team.ToAPI())
}

// ListTeams handles GET /api/v1/teams.
func (h *Handler) ListTeams(c *gin.Context) {
	teams, err := h.teams.ListTeams()
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]v1.Team, 0, len(teams))
	for _, t := range teams {
		out = append(out, t.ToAPI())
	}
	c.JSON(http.StatusOK, gin.H{"teams": out, "total": len(out)})
}

// GetTeam handles GET /api/v1/teams/:teamId.
func (h *Handler) GetTeam(c *gin.Context) {
	team, err := h.teams.GetTeam(c.Param("teamId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, team.ToAPI())
}

// StartTeam handles POST /api/v1/teams/:teamId/start.
func (h *Handler) StartTeam(c *gin.Context) {
	var req StartTeamRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.orc.StartTeam(c.Request.Context(), c.Param("teamId"), req.ProjectID)
	if err != nil {
		h.fail(c, err)
		return
	}

	members := make([]gin.H, 0, len(result.Members))
	for _, m := range result.Members {
		members = append(members, gin.H{
			"memberId":         m.Member.ID,
			"ok":               m.OK,
			"stage":            m.Stage,
			"checkInMessageId": m.CheckInMessageID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"team": result.Team.ToAPI(), "members": members})
}

// StopTeam handles POST /api/v1/teams/:teamId/stop.
func (h *Handler) StopTeam(c *gin.Context) {
	if err := h.orc.StopTeam(c.Request.Context(), c.Param("teamId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartTeamMember handles POST /api/v1/teams/:teamId/members/:memberId/start.
func (h *Handler) StartTeamMember(c *gin.Context) {
	projectPath := c.Query("projectPath")
	res, err := h.orc.StartTeamMember(c.Request.Context(), c.Param("teamId"), c.Param("memberId"), projectPath)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": res.OK, "stage": res.Stage})
}

// StopTeamMember handles POST /api/v1/teams/:teamId/members/:memberId/stop.
func (h *Handler) StopTeamMember(c *gin.Context) {
	if err := h.orc.StopTeamMember(c.Request.Context(), c.Param("teamId"), c.Param("memberId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Projects

// CreateProject handles POST /api/v1/projects.
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}
	project := &models.Project{Name: req.Name, Path: req.Path, Status: v1.ProjectStatusActive}
	if err := h.projects.SaveProject(project); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, project.ToAPI())
}

// ListProjects handles GET /api/v1/projects.
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.projects.ListProjects()
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]v1.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.ToAPI())
	}
	c.JSON(http.StatusOK, gin.H{"projects": out, "total": len(out)})
}

// GetProject handles GET /api/v1/projects/:projectId.
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.projects.GetProject(c.Param("projectId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, project.ToAPI())
}

// AssignTeamToProject handles POST /api/v1/projects/:projectId/teams.
func (h *Handler) AssignTeamToProject(c *gin.Context) {
	var req AssignTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}
	if err := h.orc.AssignTeamsToProject(c.Param("projectId"), req.Role, req.TeamID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Tasks

// AssignTask handles POST /api/v1/tasks/assign.
func (h *Handler) AssignTask(c *gin.Context) {
	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}
	entry, err := h.orc.AssignTask(req.ProjectID, req.FilePath, req.TaskName, req.Role, req.MemberID, req.SessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry.ToAPI())
}

// CompleteTask handles POST /api/v1/tasks/:entryId/complete.
func (h *Handler) CompleteTask(c *gin.Context) {
	if err := h.orc.CompleteTask(c.Param("entryId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BlockTask handles POST /api/v1/tasks/:entryId/block.
func (h *Handler) BlockTask(c *gin.Context) {
	var req BlockTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}
	if err := h.orc.BlockTask(c.Param("entryId"), req.Reason); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TakeNextTask handles POST /api/v1/projects/:projectId/tasks/next.
func (h *Handler) TakeNextTask(c *gin.Context) {
	var req TakeNextTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}
	task, err := h.orc.TakeNextTask(c.Param("projectId"), req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	if task == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, task.ToAPI())
}

// SyncTaskStatus handles POST /api/v1/projects/:projectId/tasks/sync.
func (h *Handler) SyncTaskStatus(c *gin.Context) {
	if err := h.orc.SyncTaskStatus(c.Param("projectId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTickets handles GET /api/v1/projects/:projectId/tickets, answering
// getTickets(projectPath, filter) from the sqlite-backed ticket index.
func (h *Handler) GetTickets(c *gin.Context) {
	filter := storage.TicketFilter{
		Status:      v1.TaskStatus(c.Query("status")),
		TargetRole:  v1.Role(c.Query("role")),
		MilestoneID: c.Query("milestoneId"),
	}
	tickets, err := h.orc.GetTickets(c.Param("projectId"), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]v1.TaskFileInfo, len(tickets))
	for i, t := range tickets {
		out[i] = t.ToAPI()
	}
	c.JSON(http.StatusOK, gin.H{"tickets": out, "total": len(out)})
}

// Scheduled messages

// ScheduleMessage handles POST /api/v1/schedules.
func (h *Handler) ScheduleMessage(c *gin.Context) {
	var req ScheduleMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}
	msg := &models.ScheduledMessage{
		Name:        req.Name,
		Target:      req.Target,
		Message:     req.Message,
		DelayAmount: req.DelayAmount,
		DelayUnit:   req.DelayUnit,
		Recurring:   req.Recurring,
	}
	if err := h.sched.ScheduleMessage(msg); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg.ToAPI())
}

// CancelScheduledMessage handles DELETE /api/v1/schedules/:messageId.
func (h *Handler) CancelScheduledMessage(c *gin.Context) {
	if err := h.sched.CancelMessage(c.Param("messageId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Runtime registration

// RegisterAgent handles POST /api/v1/agents/register — the callback an
// agent's session calls once it is ready to receive work.
func (h *Handler) RegisterAgent(c *gin.Context) {
	var req RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}
	reg := &models.RuntimeRegistration{
		Role:       req.Role,
		SessionID:  req.SessionID,
		MemberID:   req.MemberID,
		Status:     "registered",
		ReceivedAt: time.Now().UTC(),
	}
	if err := h.runtime.RecordRegistration(reg); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Workflows

// RetryWorkflowStep handles POST /api/v1/workflows/:configFile/steps/:stepId/retry.
func (h *Handler) RetryWorkflowStep(c *gin.Context) {
	var req RetryWorkflowStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}

	vars := workflow.Vars{
		ProjectName: req.ProjectName,
		ProjectID:   req.ProjectID,
		ProjectPath: req.ProjectPath,
		InitialGoal: req.InitialGoal,
		UserJourney: req.UserJourney,
	}
	res := h.engine.RetryStep(c.Request.Context(), c.Param("configFile"), c.Param("stepId"), req.TargetSession, vars, req.OperationID)
	if res.Err != nil {
		h.fail(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stepId": res.StepID, "delivered": res.Delivered})
}

// GenerateTasksFromWorkflow handles
// POST /api/v1/projects/:projectId/workflows/:configFile/generate-tasks.
func (h *Handler) GenerateTasksFromWorkflow(c *gin.Context) {
	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}

	tasks, err := h.engine.GenerateTasksFromConfig(req.ProjectPath, c.Param("projectId"), req.MilestoneID, c.Param("configFile"), req.TargetRole, req.Priority)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": tasks, "total": len(tasks)})
}

// TakeQueuedAssignment handles POST /api/v1/workflows/queue/next: it pops the
// highest-priority AssignmentQueue entry for req.Role and registers it as an
// assignment for req.MemberID/req.SessionID. Success with a null body means
// no entry was queued for that role, matching TakeNextTask's empty-queue
// semantics.
func (h *Handler) TakeQueuedAssignment(c *gin.Context) {
	var req TakeQueuedAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.InvalidInput(err.Error()))
		return
	}

	entry := h.engine.TakeQueuedAssignment(req.Role)
	if entry == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	taskName := filepath.Base(entry.FilePath)
	assigned, err := h.orc.AssignTask(entry.ProjectID, entry.FilePath, taskName, req.Role, req.MemberID, req.SessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, assigned.ToAPI())
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}
