package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/common/logger"
)

const validConfig = `{
  "name": "build-spec",
  "steps": [
    {
      "id": "draft-spec",
      "name": "Draft spec",
      "prompts": ["Write the initial spec for {PROJECT_NAME}."],
      "verification": {"type": "file_exists", "paths": ["spec.md"]}
    },
    {
      "id": "review-spec",
      "name": "Review spec",
      "prompts": ["Review the spec."],
      "dependencies": ["draft-spec"]
    }
  ]
}`

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNewMissingDirectoryIsNotAnError(t *testing.T) {
	l, err := New(filepath.Join(t.TempDir(), "does-not-exist"), logger.Default())
	require.NoError(t, err)
	_, err = l.Get(BuildSpecConfigFile)
	assert.True(t, errors.IsNotFound(err))
}

func TestNewLoadsExistingConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, BuildSpecConfigFile, validConfig)

	l, err := New(dir, logger.Default())
	require.NoError(t, err)

	wf, err := l.Get(BuildSpecConfigFile)
	require.NoError(t, err)
	assert.Equal(t, "build-spec", wf.Name)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, "draft-spec", wf.Steps[0].ID)
}

func TestNewFailsOnInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, BuildTasksConfigFile, `{not valid json`)

	_, err := New(dir, logger.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestStepByIDAndPosition(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, BuildSpecConfigFile, validConfig)
	l, err := New(dir, logger.Default())
	require.NoError(t, err)

	wf, err := l.Get(BuildSpecConfigFile)
	require.NoError(t, err)

	step, ok := wf.StepByID("review-spec")
	require.True(t, ok)
	assert.Equal(t, "Review spec", step.Name)
	assert.Equal(t, 1, wf.Position("review-spec"))

	_, ok = wf.StepByID("missing")
	assert.False(t, ok)
	assert.Equal(t, -1, wf.Position("missing"))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, BuildSpecConfigFile, validConfig)

	l, err := New(dir, logger.Default())
	require.NoError(t, err)

	stop := make(chan struct{})
	defer close(stop)
	require.NoError(t, l.Watch(stop))

	updated := `{"name":"build-spec-v2","steps":[{"id":"only-step","name":"Only step","prompts":["go"]}]}`
	writeConfig(t, dir, BuildSpecConfigFile, updated)

	require.Eventually(t, func() bool {
		wf, err := l.Get(BuildSpecConfigFile)
		return err == nil && wf.Name == "build-spec-v2"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatchForgetsRemovedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, BuildSpecConfigFile, validConfig)

	l, err := New(dir, logger.Default())
	require.NoError(t, err)

	stop := make(chan struct{})
	defer close(stop)
	require.NoError(t, l.Watch(stop))

	require.NoError(t, os.Remove(filepath.Join(dir, BuildSpecConfigFile)))

	require.Eventually(t, func() bool {
		_, err := l.Get(BuildSpecConfigFile)
		return errors.IsNotFound(err)
	}, 2*time.Second, 20*time.Millisecond)
}
