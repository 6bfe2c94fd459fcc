package activity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/models"
	"github.com/agentmux/agentmux-core/internal/session"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

type fakeStore struct {
	teams []*models.Team
	saved map[string]*models.Team
}

func newFakeStore(teams ...*models.Team) *fakeStore {
	return &fakeStore{teams: teams, saved: make(map[string]*models.Team)}
}
func (f *fakeStore) ListTeams() ([]*models.Team, error) { return f.teams, nil }
func (f *fakeStore) SaveTeam(t *models.Team) error {
	f.saved[t.ID] = t
	return nil
}

// fakeTmuxDriver answers has-session from a touch-file registry and
// capture-pane from a fixed, swappable output file so a poll can observe a
// change in captured content between two polls.
func fakeTmuxDriver(t *testing.T, liveSessions []string, output string) *session.Driver {
	t.Helper()
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "state")
	require.NoError(t, os.MkdirAll(stateDir, 0o755))
	for _, name := range liveSessions {
		require.NoError(t, os.WriteFile(filepath.Join(stateDir, name), nil, 0o644))
	}
	outputPath := filepath.Join(dir, "output.txt")
	require.NoError(t, os.WriteFile(outputPath, []byte(output), 0o644))

	script := `#!/bin/sh
state="` + stateDir + `"
case "$1" in
  has-session)
    if [ -f "$state/$3" ]; then exit 0; else exit 1; fi ;;
  capture-pane)
    cat "` + outputPath + `"; exit 0 ;;
  *) exit 0 ;;
esac
`
	path := filepath.Join(dir, "tmux")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return session.New(path, time.Second, logger.Default())
}

func TestPollMemberMarksInactiveWhenSessionGone(t *testing.T) {
	driver := fakeTmuxDriver(t, nil, "")
	store := newFakeStore()
	m := New(store, driver, time.Hour, 10, logger.Default())

	member := &models.TeamMember{ID: "m-1", SessionName: "agentmux-dev-0", AgentStatus: v1.AgentStatusActive}
	changed := m.pollMember(context.Background(), member)

	assert.True(t, changed)
	assert.Equal(t, v1.AgentStatusInactive, member.AgentStatus)
	assert.Equal(t, v1.WorkingStatusIdle, member.WorkingStatus)
	assert.NotNil(t, member.LastActivityCheck)
}

func TestPollMemberMarksInProgressOnChangedOutput(t *testing.T) {
	driver := fakeTmuxDriver(t, []string{"agentmux-dev-0"}, "new output")
	store := newFakeStore()
	m := New(store, driver, time.Hour, 10, logger.Default())

	member := &models.TeamMember{ID: "m-1", SessionName: "agentmux-dev-0", AgentStatus: v1.AgentStatusActive, LastTerminalOutput: "old output"}
	changed := m.pollMember(context.Background(), member)

	assert.True(t, changed)
	assert.Equal(t, v1.WorkingStatusInProgress, member.WorkingStatus)
	assert.Equal(t, "new output", member.LastTerminalOutput)
}

func TestPollMemberMarksIdleOnUnchangedOutput(t *testing.T) {
	driver := fakeTmuxDriver(t, []string{"agentmux-dev-0"}, "same output")
	store := newFakeStore()
	m := New(store, driver, time.Hour, 10, logger.Default())

	member := &models.TeamMember{ID: "m-1", SessionName: "agentmux-dev-0", AgentStatus: v1.AgentStatusActive, LastTerminalOutput: "same output"}
	changed := m.pollMember(context.Background(), member)

	assert.True(t, changed)
	assert.Equal(t, v1.WorkingStatusIdle, member.WorkingStatus)
}

func TestPollOnceSkipsInactiveAndUnstartedMembers(t *testing.T) {
	driver := fakeTmuxDriver(t, []string{"agentmux-dev-0"}, "output")
	team := &models.Team{ID: "team-1", Members: []*models.TeamMember{
		{ID: "m-1", SessionName: "agentmux-dev-0", AgentStatus: v1.AgentStatusActive},
		{ID: "m-2", SessionName: "", AgentStatus: v1.AgentStatusInactive},
	}}
	store := newFakeStore(team)
	m := New(store, driver, time.Hour, 10, logger.Default())

	m.pollOnce(context.Background())

	saved, ok := store.saved["team-1"]
	require.True(t, ok)
	assert.Equal(t, v1.WorkingStatusInProgress, saved.Members[0].WorkingStatus)
	assert.Empty(t, saved.Members[1].LastActivityCheck)
}

func TestNewDefaultsNonPositiveLines(t *testing.T) {
	driver := fakeTmuxDriver(t, nil, "")
	m := New(newFakeStore(), driver, time.Hour, 0, logger.Default())
	assert.Equal(t, 50, m.lines)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	driver := fakeTmuxDriver(t, nil, "")
	m := New(newFakeStore(), driver, 10*time.Millisecond, 10, logger.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
