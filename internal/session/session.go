// Package session implements the Session Driver (C1): a thin wrapper over
// an external terminal multiplexer binary (tmux by convention), invoked via
// os/exec. All operations are blocking from the caller's perspective; a
// bounded concurrency gate lets the Supervisor run many creations in
// parallel without exhausting host resources.
package session

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"

	"github.com/agentmux/agentmux-core/internal/common/logger"
)

// Info describes one live multiplexer session.
type Info struct {
	Name    string
	Created time.Time
}

// Result is the outcome of a Driver operation that can fail without a Go
// error — spec.md requires failures reported as {ok:false, err} rather than
// surfaced as panics or thrown exceptions.
type Result struct {
	OK       bool
	Err      error
	NotFound bool
}

// Driver wraps the tmux binary for session lifecycle and I/O.
type Driver struct {
	binary         string
	commandTimeout time.Duration
	log            *logger.Logger
}

// New builds a Driver invoking binary (usually "tmux"), bounding every
// subprocess call to commandTimeout.
func New(binary string, commandTimeout time.Duration, log *logger.Logger) *Driver {
	if binary == "" {
		binary = "tmux"
	}
	return &Driver{binary: binary, commandTimeout: commandTimeout, log: log}
}

func (d *Driver) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s %s: %w: %s", d.binary, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Create starts a new session named sessionName rooted at projectPath, for
// a member of the given role, exporting env into the session's initial
// environment. role is not passed to tmux directly; it only shapes the
// caller's subsequent prompt delivery.
func (d *Driver) Create(ctx context.Context, role v1.Role, sessionName, projectPath string, env map[string]string) Result {
	_ = role
	if d.exists(ctx, sessionName) {
		return Result{OK: true}
	}
	args := []string{"new-session", "-d", "-s", sessionName}
	if projectPath != "" {
		args = append(args, "-c", projectPath)
	}
	for k, v := range env {
		args = append(args, "-e", k+"="+v)
	}
	if _, err := d.run(ctx, args...); err != nil {
		return Result{OK: false, Err: err}
	}
	return Result{OK: true}
}

// OrchestratorSessionName is the fixed session name for the orchestrator
// singleton.
const OrchestratorSessionName = "agentmux-orc"

// CreateOrchestrator starts the singleton orchestrator session.
func (d *Driver) CreateOrchestrator(ctx context.Context, projectPath string, env map[string]string) Result {
	return d.Create(ctx, v1.RoleOrchestrator, OrchestratorSessionName, projectPath, env)
}

// Exists reports whether sessionName is currently alive.
func (d *Driver) Exists(ctx context.Context, sessionName string) bool {
	return d.exists(ctx, sessionName)
}

func (d *Driver) exists(ctx context.Context, sessionName string) bool {
	_, err := d.run(ctx, "has-session", "-t", sessionName)
	return err == nil
}

// List returns every live session known to the multiplexer.
func (d *Driver) List(ctx context.Context) ([]Info, error) {
	out, err := d.run(ctx, "list-sessions", "-F", "#{session_name}\t#{session_created}")
	if err != nil {
		if strings.Contains(err.Error(), "no server running") {
			return nil, nil
		}
		return nil, err
	}

	var sessions []Info
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		info := Info{Name: parts[0]}
		sessions = append(sessions, info)
	}
	return sessions, nil
}

// Kill terminates sessionName. Killing an absent session is a success with
// NotFound set, per spec.md's failure model for this operation.
func (d *Driver) Kill(ctx context.Context, sessionName string) Result {
	if !d.exists(ctx, sessionName) {
		return Result{OK: true, NotFound: true}
	}
	if _, err := d.run(ctx, "kill-session", "-t", sessionName); err != nil {
		return Result{OK: false, Err: err}
	}
	return Result{OK: true}
}

// CapturePane returns the trailing `lines` lines of sessionName's pane.
func (d *Driver) CapturePane(ctx context.Context, sessionName string, lines int) (string, error) {
	if lines <= 0 {
		lines = 50
	}
	out, err := d.run(ctx, "capture-pane", "-t", sessionName, "-p", "-S", fmt.Sprintf("-%d", lines))
	if err != nil {
		return "", err
	}
	return out, nil
}

// SendMessage types text into sessionName's input prompt without committing
// it; callers typically follow with SendKey(ctx, name, "Enter").
func (d *Driver) SendMessage(ctx context.Context, sessionName, text string) Result {
	if _, err := d.run(ctx, "send-keys", "-t", sessionName, "-l", text); err != nil {
		return Result{OK: false, Err: err}
	}
	return Result{OK: true}
}

// SendKey sends a named key (e.g. "Enter", "C-c") to sessionName.
func (d *Driver) SendKey(ctx context.Context, sessionName, key string) Result {
	if _, err := d.run(ctx, "send-keys", "-t", sessionName, key); err != nil {
		return Result{OK: false, Err: err}
	}
	return Result{OK: true}
}
