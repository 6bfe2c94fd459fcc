package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/session"
	"github.com/agentmux/agentmux-core/internal/taskfolder"
	"github.com/agentmux/agentmux-core/internal/workflow/config"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

func TestSubstituteReplacesKnownPlaceholders(t *testing.T) {
	vars := Vars{
		ProjectName: "agentmux",
		ProjectID:   "p-1",
		ProjectPath: "/repos/agentmux",
		InitialGoal: "ship the orchestrator",
		UserJourney: "operator starts a team",
	}
	in := "Project {PROJECT_NAME} ({PROJECT_ID}) at {PROJECT_PATH}: {INITIAL_GOAL}. Journey: {USER_JOURNEY}."
	out := Substitute(in, vars)
	assert.Equal(t, "Project agentmux (p-1) at /repos/agentmux: ship the orchestrator. Journey: operator starts a team.", out)
}

func TestSubstituteLeavesUnknownPlaceholdersUntouched(t *testing.T) {
	out := Substitute("keep {THIS_ONE} but replace {PROJECT_NAME}", Vars{ProjectName: "x"})
	assert.Equal(t, "keep {THIS_ONE} but replace x", out)
}

func newTestEngine(t *testing.T, configDir string, tpmEnabled bool, gates []TPMFileGate) *Engine {
	t.Helper()
	log := logger.Default()
	loader, err := config.New(configDir, log)
	require.NoError(t, err)
	driver := session.New("/nonexistent/tmux-binary-for-tests", 200*time.Millisecond, log)
	folder := taskfolder.New(log)
	queue := NewAssignmentQueue()
	return New(loader, driver, folder, queue, tpmEnabled, gates, log)
}

func TestNextTPMStepDisabledByDefault(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), false, []TPMFileGate{{StepID: "gate-1", Paths: []string{"spec.md"}}})
	_, ok := e.NextTPMStep(t.TempDir())
	assert.False(t, ok)
}

func TestNextTPMStepReturnsFirstMissingGate(t *testing.T) {
	projectDir := t.TempDir()
	gates := []TPMFileGate{
		{StepID: "gate-1", Paths: []string{"spec.md"}},
		{StepID: "gate-2", Paths: []string{"design.md"}},
	}
	e := newTestEngine(t, t.TempDir(), true, gates)

	gate, ok := e.NextTPMStep(projectDir)
	require.True(t, ok)
	assert.Equal(t, "gate-1", gate.StepID)

	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "spec.md"), []byte("spec"), 0o644))
	gate, ok = e.NextTPMStep(projectDir)
	require.True(t, ok)
	assert.Equal(t, "gate-2", gate.StepID)

	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "design.md"), []byte("design"), 0o644))
	_, ok = e.NextTPMStep(projectDir)
	assert.False(t, ok)
}

func TestRetryStepSessionUnavailable(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.BuildSpecConfigFile),
		[]byte(`{"name":"build-spec","steps":[{"id":"draft-spec","name":"Draft","prompts":["go"]}]}`), 0o644))
	e := newTestEngine(t, configDir, false, nil)

	res := e.RetryStep(context.Background(), config.BuildSpecConfigFile, "draft-spec", "no-such-session", Vars{}, "")
	require.Error(t, res.Err)
	assert.True(t, apperrors.Is(res.Err, apperrors.ErrCodeSessionUnavailable))
	assert.False(t, res.Delivered)
}

func TestRetryStepUnknownStep(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.BuildSpecConfigFile),
		[]byte(`{"name":"build-spec","steps":[{"id":"draft-spec","name":"Draft","prompts":["go"]}]}`), 0o644))
	e := newTestEngine(t, configDir, false, nil)

	res := e.RetryStep(context.Background(), config.BuildSpecConfigFile, "missing-step", "some-session", Vars{}, "")
	require.Error(t, res.Err)
	assert.True(t, apperrors.IsNotFound(res.Err))
}

func TestRetryStepIdempotentOperationIDSkipsReExecution(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.BuildSpecConfigFile),
		[]byte(`{"name":"build-spec","steps":[{"id":"draft-spec","name":"Draft","prompts":["go"]}]}`), 0o644))
	e := newTestEngine(t, configDir, false, nil)

	// Mark the operation as already applied, bypassing delivery entirely.
	e.mu.Lock()
	e.applied["op-1"] = true
	e.mu.Unlock()

	res := e.RetryStep(context.Background(), config.BuildSpecConfigFile, "draft-spec", "no-such-session", Vars{}, "op-1")
	assert.NoError(t, res.Err)
	assert.True(t, res.Delivered)
}

func TestGenerateTasksFromConfigWritesFilesAndEnqueues(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.BuildTasksConfigFile), []byte(`{
		"name": "build-tasks",
		"steps": [
			{"id": "scaffold", "name": "Scaffold project", "prompts": ["go"], "verification": {"paths": ["go.mod"]}},
			{"id": "wire-api", "name": "Wire the API", "prompts": ["go"]}
		]
	}`), 0o644))
	e := newTestEngine(t, configDir, false, nil)

	projectDir := t.TempDir()
	tasks, err := e.GenerateTasksFromConfig(projectDir, "proj-1", "m1_bootstrap", config.BuildTasksConfigFile, v1.RoleDeveloper, 5)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	for _, task := range tasks {
		content, err := os.ReadFile(task.FilePath)
		require.NoError(t, err)
		assert.Contains(t, string(content), task.TaskID)
	}

	assert.Equal(t, 2, e.queue.Len())
	entry := e.queue.DequeueForRole(v1.RoleDeveloper)
	require.NotNil(t, entry)
	assert.Equal(t, "proj-1", entry.ProjectID)
	assert.Equal(t, 5, entry.Priority)
}

func TestGenerateTasksFromConfigRejectsBadMilestoneID(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.BuildTasksConfigFile),
		[]byte(`{"name":"build-tasks","steps":[{"id":"s1","name":"Step","prompts":["go"]}]}`), 0o644))
	e := newTestEngine(t, configDir, false, nil)

	_, err := e.GenerateTasksFromConfig(t.TempDir(), "proj-1", "not-a-valid-milestone", config.BuildTasksConfigFile, v1.RoleDeveloper, 1)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput))
}
