// Package supervisor implements the Agent Supervisor (C6): it turns a
// TeamMember into a live, registered agent via a progressive escalation
// protocol, and runs the Activity Monitor's session-existence side of
// batched team starts.
package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/agentmux/agentmux-core/internal/common/errors"
	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/models"
	"github.com/agentmux/agentmux-core/internal/session"
	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

// registrationMarker is the token an agent's pane capture must contain for
// its registration to be recognized without a runtime ping, e.g. when the
// out-of-band HTTP callback is unreachable from inside the session.
const registrationMarker = "AGENTMUX_REGISTERED"

// RegistrationOracle answers whether a role has a fresh self-registration.
type RegistrationOracle interface {
	GetRegistration(role v1.Role) (*models.RuntimeRegistration, error)
}

// Config bounds the Supervisor's escalation and batching behavior.
type Config struct {
	EscalationTimeout     time.Duration
	RegistrationFreshness time.Duration
	MaxConcurrentCreates  int
	BatchGap              time.Duration
}

// Supervisor drives session creation and progressive escalation.
type Supervisor struct {
	driver   *session.Driver
	registry RegistrationOracle
	cfg      Config
	log      *logger.Logger

	createSem *semaphore.Weighted

	orchestratorCreated bool
}

// New builds a Supervisor.
func New(driver *session.Driver, registry RegistrationOracle, cfg Config, log *logger.Logger) *Supervisor {
	if cfg.MaxConcurrentCreates <= 0 {
		cfg.MaxConcurrentCreates = 2
	}
	return &Supervisor{
		driver:    driver,
		registry:  registry,
		cfg:       cfg,
		log:       log.WithFields(zap.String("component", "supervisor")),
		createSem: semaphore.NewWeighted(int64(cfg.MaxConcurrentCreates)),
	}
}

// InitResult is the outcome of initializing one member.
type InitResult struct {
	Member  *models.TeamMember
	OK      bool
	Err     error
	Stage   string // which escalation stage succeeded or "failed"
}

// InitializeMember runs the full progressive escalation protocol for one
// member, blocking until success, failure, or ctx cancellation.
func (s *Supervisor) InitializeMember(ctx context.Context, member *models.TeamMember, projectPath string) InitResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.EscalationTimeout)
	defer cancel()

	sessionName := member.SessionName
	if sessionName == "" {
		sessionName = fmt.Sprintf("%s-%s", member.Role, shortID(member.ID))
	}

	prompt := models.BuildSystemPrompt(member.Role, projectPath, sessionName)
	env := sessionCredentials()

	// Stage 1: direct prompt.
	if err := s.acquireCreateSlot(ctx); err != nil {
		return s.fail(member, err)
	}
	res := s.driver.Create(ctx, member.Role, sessionName, projectPath, env)
	s.createSem.Release(1)
	if !res.OK {
		return s.fail(member, res.Err)
	}
	member.SessionName = sessionName
	s.deliverPrompt(ctx, sessionName, prompt)

	if s.waitForRegistration(ctx, member, sessionName, s.cfg.EscalationTimeout/3) {
		return s.succeed(member, sessionName, "direct_prompt")
	}

	// Stage 2: cleanup and reinit.
	s.driver.SendKey(ctx, sessionName, "C-c")
	s.deliverPrompt(ctx, sessionName, prompt)
	if s.waitForRegistration(ctx, member, sessionName, s.cfg.EscalationTimeout/3) {
		return s.succeed(member, sessionName, "cleanup_reinit")
	}

	// Stage 3: full recreation.
	s.driver.Kill(ctx, sessionName)
	if err := s.acquireCreateSlot(ctx); err != nil {
		return s.fail(member, err)
	}
	res = s.driver.Create(ctx, member.Role, sessionName, projectPath, env)
	s.createSem.Release(1)
	if !res.OK {
		return s.fail(member, res.Err)
	}
	s.deliverPrompt(ctx, sessionName, prompt)
	if s.waitForRegistration(ctx, member, sessionName, s.cfg.EscalationTimeout/3) {
		return s.succeed(member, sessionName, "full_recreation")
	}

	// Stage 4: fail.
	member.AgentStatus = v1.AgentStatusInactive
	return InitResult{Member: member, OK: false, Stage: "failed", Err: apperrors.Timeout("agent failed to self-register within the escalation window")}
}

func (s *Supervisor) acquireCreateSlot(ctx context.Context) error {
	if err := s.createSem.Acquire(ctx, 1); err != nil {
		return apperrors.Timeout("timed out waiting for a session-creation slot")
	}
	return nil
}

func (s *Supervisor) deliverPrompt(ctx context.Context, sessionName, prompt string) {
	s.driver.SendMessage(ctx, sessionName, prompt)
	s.driver.SendKey(ctx, sessionName, "Enter")
}

func (s *Supervisor) waitForRegistration(ctx context.Context, member *models.TeamMember, sessionName string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.isRegistered(member.Role, sessionName) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) isRegistered(role v1.Role, sessionName string) bool {
	if reg, err := s.registry.GetRegistration(role); err == nil && reg != nil {
		if reg.IsFresh(time.Now(), s.cfg.RegistrationFreshness) {
			return true
		}
	}

	capture, err := s.driver.CapturePane(context.Background(), sessionName, 50)
	if err != nil {
		return false
	}
	return containsMarker(capture)
}

func containsMarker(capture string) bool {
	return strings.Contains(capture, registrationMarker)
}

func (s *Supervisor) succeed(member *models.TeamMember, sessionName, stage string) InitResult {
	now := time.Now().UTC()
	member.AgentStatus = v1.AgentStatusActive
	member.SessionName = sessionName
	member.ReadyAt = &now
	return InitResult{Member: member, OK: true, Stage: stage}
}

func (s *Supervisor) fail(member *models.TeamMember, err error) InitResult {
	member.AgentStatus = v1.AgentStatusInactive
	return InitResult{Member: member, OK: false, Stage: "failed", Err: err}
}

// InitializeOrchestrator creates the singleton orchestrator session. A
// second call while one already exists is refused.
func (s *Supervisor) InitializeOrchestrator(ctx context.Context, projectPath string) error {
	if s.orchestratorCreated || s.driver.Exists(ctx, session.OrchestratorSessionName) {
		return apperrors.Conflict("an orchestrator session already exists")
	}
	res := s.driver.CreateOrchestrator(ctx, projectPath, sessionCredentials())
	if !res.OK {
		return apperrors.Internal("failed to create orchestrator session", res.Err)
	}
	s.orchestratorCreated = true
	return nil
}

// BatchInitialize initializes members in batches of at most
// Config.MaxConcurrentCreates, with Config.BatchGap between batches,
// aggregating results before returning.
func (s *Supervisor) BatchInitialize(ctx context.Context, members []*models.TeamMember, projectPath string) []InitResult {
	results := make([]InitResult, len(members))
	batchSize := s.cfg.MaxConcurrentCreates
	if batchSize <= 0 {
		batchSize = 2
	}

	for start := 0; start < len(members); start += batchSize {
		end := start + batchSize
		if end > len(members) {
			end = len(members)
		}

		batch := members[start:end]
		done := make(chan struct{}, len(batch))
		for i, m := range batch {
			idx := start + i
			go func(idx int, m *models.TeamMember) {
				results[idx] = s.InitializeMember(ctx, m, projectPath)
				done <- struct{}{}
			}(idx, m)
		}
		for range batch {
			<-done
		}

		if end < len(members) && s.cfg.BatchGap > 0 {
			time.Sleep(s.cfg.BatchGap)
		}
	}

	return results
}

func shortID(id string) string {
	clean := strings.ReplaceAll(id, "-", "")
	if len(clean) > 8 {
		return clean[:8]
	}
	return clean
}
