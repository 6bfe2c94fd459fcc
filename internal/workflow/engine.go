// Package workflow implements the Workflow Engine (C8): it drives
// config-defined step sequences for a project, in three execution models —
// retrying a single step's prompts, generating task files from a config into
// the open-task queue, and (when enabled) a file-gated TPM check-in loop —
// plus the AssignmentQueue (see queue.go) that the task-generation model
// feeds.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/session"
	"github.com/agentmux/agentmux-core/internal/taskfolder"
	"github.com/agentmux/agentmux-core/internal/workflow/config"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// Vars is the set of template placeholders substituted into step prompts.
type Vars struct {
	ProjectName  string
	ProjectID    string
	ProjectPath  string
	InitialGoal  string
	UserJourney  string
}

// Substitute replaces every {PLACEHOLDER} token in s with its Vars value.
// Unknown placeholders are left untouched; substitution never fails.
func Substitute(s string, v Vars) string {
	r := strings.NewReplacer(
		"{PROJECT_NAME}", v.ProjectName,
		"{PROJECT_ID}", v.ProjectID,
		"{PROJECT_PATH}", v.ProjectPath,
		"{INITIAL_GOAL}", v.InitialGoal,
		"{USER_JOURNEY}", v.UserJourney,
	)
	return r.Replace(s)
}

// TPMFileGate describes which on-disk spec artifacts gate TPM workflow
// progression, checked in order: the first missing path names the next step.
type TPMFileGate struct {
	StepID string
	Paths  []string
}

// Engine executes workflow configs against live sessions.
type Engine struct {
	loader  *config.Loader
	driver  *session.Driver
	folder  *taskfolder.Store
	queue   *AssignmentQueue
	log     *logger.Logger

	tpmGatingEnabled bool
	tpmGates         []TPMFileGate

	mu      sync.Mutex
	applied map[string]bool // operation id -> already applied, for idempotent retries
}

// New builds an Engine. tpmGatingEnabled mirrors Config.Workflow's flag of
// the same name; the file-gated TPM workflow is a documented capability
// that ships disabled by default.
func New(loader *config.Loader, driver *session.Driver, folder *taskfolder.Store, queue *AssignmentQueue, tpmGatingEnabled bool, tpmGates []TPMFileGate, log *logger.Logger) *Engine {
	return &Engine{
		loader:           loader,
		driver:           driver,
		folder:           folder,
		queue:            queue,
		log:              log.WithFields(zap.String("component", "workflow-engine")),
		tpmGatingEnabled: tpmGatingEnabled,
		tpmGates:         tpmGates,
		applied:          make(map[string]bool),
	}
}

// StepResult is the outcome of executing one step's prompts.
type StepResult struct {
	StepID    string
	Delivered bool
	Err       error
}

// RetryStep re-delivers the named step's prompts to targetSession, after
// substituting vars into each prompt and joining them with a blank line.
// operationID makes the call idempotent: a repeated call with the same id
// is a no-op returning the prior result's delivery state.
func (e *Engine) RetryStep(ctx context.Context, configFile, stepID, targetSession string, vars Vars, operationID string) StepResult {
	if operationID != "" {
		e.mu.Lock()
		already := e.applied[operationID]
		e.mu.Unlock()
		if already {
			return StepResult{StepID: stepID, Delivered: true}
		}
	}

	wf, err := e.loader.Get(configFile)
	if err != nil {
		return StepResult{StepID: stepID, Err: err}
	}
	step, ok := wf.StepByID(stepID)
	if !ok {
		return StepResult{StepID: stepID, Err: apperrors.NotFound("workflow step", stepID)}
	}

	if !e.driver.Exists(ctx, targetSession) {
		return StepResult{StepID: stepID, Err: apperrors.SessionUnavailable(targetSession)}
	}

	prompts := make([]string, len(step.Prompts))
	for i, p := range step.Prompts {
		prompts[i] = Substitute(p, vars)
	}
	body := strings.Join(prompts, "\n\n")

	res := e.driver.SendMessage(ctx, targetSession, body)
	e.driver.SendKey(ctx, targetSession, "Enter")
	if !res.OK {
		return StepResult{StepID: stepID, Err: res.Err}
	}

	if operationID != "" {
		e.mu.Lock()
		e.applied[operationID] = true
		e.mu.Unlock()
	}
	return StepResult{StepID: stepID, Delivered: true}
}

// GeneratedTask is one task file synthesized by GenerateTasksFromConfig.
type GeneratedTask struct {
	FilePath string
	TaskID   string
	Title    string
}

// GenerateTasksFromConfig synthesizes one task markdown file per step of
// configFile into milestoneID's open/ folder (a step becomes a task whose
// acceptance criteria are the step's verification paths), then registers
// each file with the AssignmentQueue so the orchestrator can assign it.
func (e *Engine) GenerateTasksFromConfig(projectPath, projectID, milestoneID, configFile string, targetRole v1.Role, priority int) ([]GeneratedTask, error) {
	wf, err := e.loader.Get(configFile)
	if err != nil {
		return nil, err
	}

	if err := e.folder.EnsureMilestoneFolders(projectPath, milestoneID); err != nil {
		return nil, err
	}
	openDir := filepath.Join(projectPath, ".agentmux", "tasks", milestoneID, "open")

	var out []GeneratedTask
	for i, step := range wf.Steps {
		taskID := fmt.Sprintf("%s-%02d-%s", milestoneID, i+1, step.ID)
		fileName := fmt.Sprintf("%02d_%s.md", i+1, step.ID)
		path := filepath.Join(openDir, fileName)

		content := renderTaskMarkdown(taskID, step, targetRole, milestoneID)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return out, apperrors.StorageError("failed to write generated task file", err)
		}

		if err := e.queue.Enqueue(path, projectID, targetRole, priority); err != nil && err != ErrEntryExists {
			return out, err
		}
		out = append(out, GeneratedTask{FilePath: path, TaskID: taskID, Title: step.Name})
	}
	return out, nil
}

// TakeQueuedAssignment pops the highest-priority AssignmentQueue entry
// targeted at role, or nil if none is queued, so the orchestrator can turn
// it into a registry assignment.
func (e *Engine) TakeQueuedAssignment(role v1.Role) *AssignmentEntry {
	return e.queue.DequeueForRole(role)
}

func renderTaskMarkdown(taskID string, step config.Step, role v1.Role, milestoneID string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", taskID)
	fmt.Fprintf(&b, "title: %s\n", step.Name)
	b.WriteString("status: open\n")
	b.WriteString("priority: medium\n")
	fmt.Fprintf(&b, "targetRole: %s\n", role)
	fmt.Fprintf(&b, "milestoneId: %s\n", milestoneID)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", step.Name)
	if len(step.Verification.Paths) > 0 {
		b.WriteString("## Acceptance Criteria\n\n")
		for _, p := range step.Verification.Paths {
			fmt.Fprintf(&b, "- [ ] %s exists\n", p)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// NextTPMStep inspects the gate paths in order and returns the first gate
// whose files are not all present under projectPath — that is the next
// step the TPM workflow should run. Returns ok=false once every gate is
// satisfied. A no-op when TPM file gating is disabled.
func (e *Engine) NextTPMStep(projectPath string) (gate TPMFileGate, ok bool) {
	if !e.tpmGatingEnabled {
		return TPMFileGate{}, false
	}
	for _, g := range e.tpmGates {
		for _, p := range g.Paths {
			if _, err := os.Stat(filepath.Join(projectPath, p)); err != nil {
				return g, true
			}
		}
	}
	return TPMFileGate{}, false
}

// RunTPMCheckin delivers the next gated step's prompts (from configFile) to
// targetSession if one remains, or is a no-op once every gate file exists.
func (e *Engine) RunTPMCheckin(ctx context.Context, projectPath, configFile, targetSession string, vars Vars) (StepResult, bool) {
	gate, ok := e.NextTPMStep(projectPath)
	if !ok {
		return StepResult{}, false
	}
	opID := fmt.Sprintf("tpm:%s:%s:%d", targetSession, gate.StepID, time.Now().Truncate(time.Minute).Unix())
	return e.RetryStep(ctx, configFile, gate.StepID, targetSession, vars, opID), true
}
