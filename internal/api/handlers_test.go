package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/events/bus"
	"github.com/agentmux/agentmux-core/internal/orchestrator"
	"github.com/agentmux/agentmux-core/internal/scheduler"
	"github.com/agentmux/agentmux-core/internal/session"
	"github.com/agentmux/agentmux-core/internal/storage"
	"github.com/agentmux/agentmux-core/internal/supervisor"
	"github.com/agentmux/agentmux-core/internal/taskfolder"
	"github.com/agentmux/agentmux-core/internal/taskregistry"
	"github.com/agentmux/agentmux-core/internal/workflow"
	"github.com/agentmux/agentmux-core/internal/workflow/config"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

func fakeTmuxDriver(t *testing.T) *session.Driver {
	t.Helper()
	dir := t.TempDir()
	script := "#!/bin/sh\ncase \"$1\" in has-session) exit 1 ;; *) exit 0 ;; esac\n"
	path := filepath.Join(dir, "tmux")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return session.New(path, time.Second, logger.Default())
}

func newTestRouter(t *testing.T) (*gin.Engine, *storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.New(t.TempDir(), logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	folder := taskfolder.New(logger.Default())
	registry := taskregistry.New(store, folder, logger.Default())
	driver := fakeTmuxDriver(t)
	sup := supervisor.New(driver, store, supervisor.Config{EscalationTimeout: time.Second, RegistrationFreshness: time.Minute, MaxConcurrentCreates: 2}, logger.Default())
	sched := scheduler.New(store, driver, logger.Default())
	events := bus.NewMemoryEventBus(logger.Default())
	t.Cleanup(events.Close)

	loader, err := config.New(filepath.Join(t.TempDir(), "missing-config-dir"), logger.Default())
	require.NoError(t, err)
	engine := workflow.New(loader, driver, folder, workflow.NewAssignmentQueue(), false, nil, logger.Default())

	orc := orchestrator.New(store, store, sup, sched, registry, store, folder, driver, events, logger.Default())
	handler := NewHandler(orc, store, store, sched, store, engine, logger.Default())
	hub := NewHub(events, logger.Default())

	router := gin.New()
	v1Group := router.Group("/api/v1")
	SetupRoutes(v1Group, handler, hub, logger.Default())
	return router, store
}

func newTestRouterWithEngine(t *testing.T) (*gin.Engine, *storage.Store, *workflow.AssignmentQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.New(t.TempDir(), logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	folder := taskfolder.New(logger.Default())
	registry := taskregistry.New(store, folder, logger.Default())
	driver := fakeTmuxDriver(t)
	sup := supervisor.New(driver, store, supervisor.Config{EscalationTimeout: time.Second, RegistrationFreshness: time.Minute, MaxConcurrentCreates: 2}, logger.Default())
	sched := scheduler.New(store, driver, logger.Default())
	events := bus.NewMemoryEventBus(logger.Default())
	t.Cleanup(events.Close)

	loader, err := config.New(filepath.Join(t.TempDir(), "missing-config-dir"), logger.Default())
	require.NoError(t, err)
	queue := workflow.NewAssignmentQueue()
	engine := workflow.New(loader, driver, folder, queue, false, nil, logger.Default())

	orc := orchestrator.New(store, store, sup, sched, registry, store, folder, driver, events, logger.Default())
	handler := NewHandler(orc, store, store, sched, store, engine, logger.Default())
	hub := NewHub(events, logger.Default())

	router := gin.New()
	v1Group := router.Group("/api/v1")
	SetupRoutes(v1Group, handler, hub, logger.Default())
	return router, store, queue
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthReturnsOK(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTeamAndGetTeam(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/teams", CreateTeamRequest{
		Name: "Alpha",
		Members: []CreateMemberSpec{{Name: "Dev One", Role: v1.RoleDeveloper}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created v1.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/teams/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTeamDuplicateNameConflicts(t *testing.T) {
	router, _ := newTestRouter(t)

	req := CreateTeamRequest{Name: "Alpha"}
	rec := doRequest(t, router, http.MethodPost, "/api/v1/teams", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/teams", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateTeamMissingNameIsBadRequest(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/api/v1/teams", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndGetProject(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/projects", CreateProjectRequest{Name: "Demo", Path: "/tmp/demo"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created v1.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, router, http.MethodGet, "/api/v1/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAssignTaskIdempotentOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)

	body := AssignTaskRequest{ProjectID: "proj-1", FilePath: "open/task.md", Role: v1.RoleDeveloper, MemberID: "member-1"}
	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks/assign", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/tasks/assign", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	conflicting := AssignTaskRequest{ProjectID: "proj-1", FilePath: "open/task.md", Role: v1.RoleDeveloper, MemberID: "member-2"}
	rec = doRequest(t, router, http.MethodPost, "/api/v1/tasks/assign", conflicting)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterAgentThenStartTeamMemberSucceeds(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/agents/register", RegisterAgentRequest{Role: v1.RoleDeveloper, SessionID: "s-1", MemberID: "m-1"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/teams", CreateTeamRequest{
		Name:    "Alpha",
		Members: []CreateMemberSpec{{Name: "Dev One", Role: v1.RoleDeveloper}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var team v1.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &team))

	rec = doRequest(t, router, http.MethodPost, "/api/v1/teams/"+team.ID+"/members/"+team.Members[0].ID+"/start", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScheduleAndCancelMessage(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/schedules", ScheduleMessageRequest{
		Name: "check-in", Target: "session-1", Message: "status?", DelayAmount: 5, DelayUnit: v1.DelayUnitMinutes,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg v1.ScheduledMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/schedules/"+msg.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGenerateTasksFromWorkflowMissingConfigIsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/projects/proj-1/workflows/unknown/generate-tasks", GenerateTasksRequest{
		ProjectPath: t.TempDir(), MilestoneID: "m1_setup", TargetRole: v1.RoleDeveloper,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTakeQueuedAssignmentReturnsNullWhenEmpty(t *testing.T) {
	router, _, _ := newTestRouterWithEngine(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/workflows/queue/next", TakeQueuedAssignmentRequest{
		Role: v1.RoleDeveloper, MemberID: "member-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestTakeQueuedAssignmentDequeuesAndAssigns(t *testing.T) {
	router, _, queue := newTestRouterWithEngine(t)
	require.NoError(t, queue.Enqueue("open/task-1.md", "proj-1", v1.RoleDeveloper, 1))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/workflows/queue/next", TakeQueuedAssignmentRequest{
		Role: v1.RoleDeveloper, MemberID: "member-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var assigned v1.InProgressTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assigned))
	assert.Equal(t, "open/task-1.md", assigned.TaskFilePath)
	assert.Equal(t, "member-1", assigned.AssignedMemberID)

	assert.Equal(t, 0, queue.Len())

	// Once dequeued, a second request for the same role finds nothing queued.
	rec = doRequest(t, router, http.MethodPost, "/api/v1/workflows/queue/next", TakeQueuedAssignmentRequest{
		Role: v1.RoleDeveloper, MemberID: "member-2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}
