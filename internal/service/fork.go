package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	pbotel "github.com/Strob0t/promptbox/internal/adapter/otel"
	"github.com/Strob0t/promptbox/internal/domain"
	"github.com/Strob0t/promptbox/internal/domain/agent"
	"github.com/Strob0t/promptbox/internal/domain/fork"
	"github.com/Strob0t/promptbox/internal/logger"
	"github.com/Strob0t/promptbox/internal/port/launcher"
	"github.com/Strob0t/promptbox/internal/resilience"
)

// Status lines appended to a fork's output log.
const (
	lineTaskPreview = 60
	lineOpening     = "> Opening new terminal window..."
	lineTerminated  = "> Fork terminated by user"
	lineCompleted   = "> Fork completed"
)

// AgentResolver is the view of the agent catalog the fork manager needs.
type AgentResolver interface {
	Resolve(id string) (agent.Definition, error)
	SummaryTemplate() string
}

// EventPublisher receives lifecycle events. Publish must not block.
type EventPublisher interface {
	Publish(ev fork.Event)
}

const (
	defaultLaunchTimeout = 15 * time.Second
	defaultKillTimeout   = 5 * time.Second
)

// ForkConfig tunes the fork manager. Zero timeouts fall back to defaults;
// zero retention settings disable that form of eviction.
type ForkConfig struct {
	WorkDir       string
	LaunchTimeout time.Duration
	KillTimeout   time.Duration
	MaxRetained   int
	RetentionTTL  time.Duration
}

// ForkService owns the fork registry and drives every status transition.
// All registry mutations happen under one mutex; events are published while
// it is held so subscribers observe them in mutation order.
type ForkService struct {
	catalog  AgentResolver
	launcher launcher.Launcher
	killer   launcher.Killer
	events   EventPublisher
	breaker  *resilience.Breaker
	metrics  *pbotel.Metrics
	cfg      ForkConfig

	now   func() time.Time
	newID func() string

	mu     sync.Mutex
	forks  map[string]*fork.Fork
	order  []string            // insertion order
	issued map[string]struct{} // every id ever handed out; eviction keeps these
}

// NewForkService creates a ForkService.
func NewForkService(
	catalog AgentResolver,
	l launcher.Launcher,
	k launcher.Killer,
	events EventPublisher,
	cfg ForkConfig,
) *ForkService {
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = defaultLaunchTimeout
	}
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = defaultKillTimeout
	}
	return &ForkService{
		catalog:  catalog,
		launcher: l,
		killer:   k,
		events:   events,
		cfg:      cfg,
		now:      time.Now,
		newID:    func() string { return uuid.NewString()[:8] },
		forks:    make(map[string]*fork.Fork),
		issued:   make(map[string]struct{}),
	}
}

// SetBreaker guards launcher calls with b.
func (s *ForkService) SetBreaker(b *resilience.Breaker) {
	s.breaker = b
}

// SetMetrics enables metric recording.
func (s *ForkService) SetMetrics(m *pbotel.Metrics) {
	s.metrics = m
}

// CreateFork spawns a new fork for req.
//
// Request and catalog errors (domain.ErrValidation, agent.ErrUnknownAgent,
// agent.ErrAgentDisabled, *agent.TemplateError) return a zero Fork and
// register nothing. A launch failure returns BOTH the registered fork, now
// in failed status, and a *launcher.LaunchError. Callers must not read a
// non-nil error as "nothing was created".
func (s *ForkService) CreateFork(ctx context.Context, req fork.CreateRequest) (fork.Fork, error) {
	if err := req.Validate(); err != nil {
		return fork.Fork{}, err
	}

	def, err := s.catalog.Resolve(req.Agent)
	if err != nil {
		return fork.Fork{}, err
	}

	prompt := req.Prompt
	if req.IncludeSummary && len(req.ConversationHistory) > 0 {
		prompt = agent.FormatSummary(s.catalog.SummaryTemplate(), req.ConversationHistory, req.Prompt)
	}

	command, err := agent.BuildCommand(&def, req.ModelTier, prompt)
	if err != nil {
		return fork.Fork{}, err
	}

	s.mu.Lock()
	f := &fork.Fork{
		ID:             s.allocateIDLocked(),
		Agent:          def.ID,
		Model:          def.Model(req.ModelTier),
		Status:         fork.StatusSpawning,
		Task:           fork.TaskLabel(req.Prompt),
		Prompt:         req.Prompt,
		StartedAt:      s.now(),
		Output:         []string{},
		IncludeSummary: req.IncludeSummary,
	}
	s.forks[f.ID] = f
	s.order = append(s.order, f.ID)
	s.commitLocked(f, fmt.Sprintf("> Spawning %s with %s model...", def.Name, req.ModelTier))
	id := f.ID
	s.mu.Unlock()

	ctx = logger.WithForkID(ctx, id)
	if s.metrics != nil {
		s.metrics.ForksCreated.Add(ctx, 1, pbotel.AgentAttrs(def.ID, string(fork.StatusSpawning)))
	}

	res, launchErr := s.launch(ctx, id, def.ID, command)

	s.mu.Lock()
	f, ok := s.forks[id]
	if !ok || f.Status != fork.StatusSpawning {
		// Terminated or reported while the spawn was in flight; that
		// transition wins. A late pid is orphaned, so kill it.
		var snap fork.Fork
		if ok {
			snap = f.Clone()
		}
		s.mu.Unlock()
		if launchErr == nil && res.PID != nil {
			s.kill(ctx, id, *res.PID)
		}
		if !ok {
			slog.InfoContext(ctx, "fork evicted before launch returned")
			return fork.Fork{}, fmt.Errorf("fork %s evicted during spawn: %w", id, domain.ErrNotFound)
		}
		slog.InfoContext(ctx, "fork left spawning before launch returned", "status", snap.Status)
		return snap, nil
	}

	if launchErr != nil {
		s.finishLocked(ctx, f, fork.StatusFailed, "> Error: "+launchErr.Error())
		snap := f.Clone()
		s.mu.Unlock()

		slog.WarnContext(ctx, "fork launch failed", "agent", def.ID, "error", launchErr)
		return snap, fmt.Errorf("fork %s: %w", id, launchErr)
	}

	f.PID = res.PID
	f.Status = fork.StatusRunning
	f.Progress = fork.ProgressLaunched
	s.commitLocked(f,
		`> Task: "`+truncateRunes(req.Prompt, lineTaskPreview)+`..."`,
		lineOpening,
		fmt.Sprintf("> Fork #%s launched successfully", id),
	)
	snap := f.Clone()
	s.mu.Unlock()

	slog.InfoContext(ctx, "fork launched", "agent", def.ID, "model", snap.Model, "terminal", res.Terminal, pidAttr(res.PID))
	return snap, nil
}

// launch runs the spawn outside the registry lock, bounded by the launch
// timeout. The request context's cancellation is ignored: an in-flight
// spawn is never abandoned because a client went away.
func (s *ForkService) launch(ctx context.Context, id, agentID, command string) (launcher.Result, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LaunchTimeout)
	defer cancel()

	ctx, span := pbotel.StartLaunchSpan(ctx, id, agentID, s.launcher.Name())
	defer span.End()

	start := s.now()
	var res launcher.Result
	call := func(ctx context.Context) error {
		var err error
		res, err = s.launcher.Launch(ctx, command, s.cfg.WorkDir)
		return err
	}

	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}

	if s.metrics != nil {
		s.metrics.LaunchDuration.Record(ctx, s.now().Sub(start).Seconds())
	}
	if err == nil {
		return res, nil
	}

	if s.metrics != nil {
		s.metrics.LaunchFailures.Add(ctx, 1, pbotel.AgentAttrs(agentID, string(fork.StatusFailed)))
	}
	span.RecordError(err)

	var le *launcher.LaunchError
	switch {
	case errors.As(err, &le):
		return launcher.Result{}, le
	case errors.Is(err, resilience.ErrCircuitOpen):
		return launcher.Result{}, &launcher.LaunchError{Reason: "terminal launcher unavailable after repeated failures", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return launcher.Result{}, &launcher.LaunchError{Reason: fmt.Sprintf("terminal launch timed out after %s", s.cfg.LaunchTimeout), Err: err}
	default:
		return launcher.Result{}, &launcher.LaunchError{Reason: "terminal launch failed", Err: err}
	}
}

// GetFork returns a snapshot of the fork with the given id.
func (s *ForkService) GetFork(id string) (fork.Fork, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.forks[id]
	if !ok {
		return fork.Fork{}, false
	}
	return f.Clone(), true
}

// ListForks returns snapshots of every retained fork in insertion order.
func (s *ForkService) ListForks() []fork.Fork {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]fork.Fork, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.forks[id].Clone())
	}
	return out
}

// CountByStatus returns how many retained forks have the given status.
func (s *ForkService) CountByStatus(status fork.Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, f := range s.forks {
		if f.Status == status {
			n++
		}
	}
	return n
}

// ActiveCount returns how many forks are spawning or running.
func (s *ForkService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, f := range s.forks {
		if !f.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// TerminateFork stops a fork. It returns false only for an unknown id.
// A fork that is already terminal is left untouched. Otherwise the fork moves
// to terminated and, if its pid is known, the process is killed best-effort;
// kill failures are logged, never returned.
func (s *ForkService) TerminateFork(ctx context.Context, id string) bool {
	ctx = logger.WithForkID(ctx, id)

	s.mu.Lock()
	f, ok := s.forks[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if f.Status.IsTerminal() {
		s.mu.Unlock()
		return true
	}

	var pid *int
	if f.PID != nil {
		p := *f.PID
		pid = &p
	}
	s.finishLocked(ctx, f, fork.StatusTerminated, lineTerminated)
	s.mu.Unlock()

	if pid != nil {
		s.kill(ctx, id, *pid)
	}
	slog.InfoContext(ctx, "fork terminated")
	return true
}

func (s *ForkService) kill(ctx context.Context, id string, pid int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.KillTimeout)
	defer cancel()

	ctx, span := pbotel.StartKillSpan(ctx, id, pid)
	defer span.End()

	if err := s.killer.Kill(ctx, pid); err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "kill fork process failed", "pid", pid, "error", err)
	}
}

// UpdateProgress sets a running fork's progress, clamped to [0,100].
// Reaching 100 completes the fork. A spawning fork is left unchanged.
func (s *ForkService) UpdateProgress(ctx context.Context, id string, progress int) (fork.Fork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.mutableLocked(id)
	if err != nil {
		return fork.Fork{}, err
	}
	if f.Status != fork.StatusRunning {
		return f.Clone(), nil
	}

	p := fork.ClampProgress(progress)
	if p == f.Progress && p < 100 {
		return f.Clone(), nil
	}
	f.Progress = p
	if p == 100 {
		s.finishLocked(ctx, f, fork.StatusCompleted, lineCompleted)
	} else {
		s.commitLocked(f)
	}
	return f.Clone(), nil
}

// MarkCompleted forces a running fork to completed with progress 100.
func (s *ForkService) MarkCompleted(ctx context.Context, id string) (fork.Fork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.mutableLocked(id)
	if err != nil {
		return fork.Fork{}, err
	}
	if !f.Status.CanTransition(fork.StatusCompleted) {
		return fork.Fork{}, fmt.Errorf("%w: fork %s is %s", fork.ErrInvalidTransition, id, f.Status)
	}
	f.Progress = 100
	s.finishLocked(ctx, f, fork.StatusCompleted, lineCompleted)
	return f.Clone(), nil
}

// MarkFailed forces a fork to failed, logging message.
func (s *ForkService) MarkFailed(ctx context.Context, id, message string) (fork.Fork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.mutableLocked(id)
	if err != nil {
		return fork.Fork{}, err
	}
	if message == "" {
		message = "unknown error"
	}
	s.finishLocked(ctx, f, fork.StatusFailed, "> Error: "+message)
	return f.Clone(), nil
}

// AppendOutput adds a status line reported from outside the manager.
func (s *ForkService) AppendOutput(_ context.Context, id, line string) (fork.Fork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.mutableLocked(id)
	if err != nil {
		return fork.Fork{}, err
	}
	s.commitLocked(f, line)
	return f.Clone(), nil
}

func (s *ForkService) mutableLocked(id string) (*fork.Fork, error) {
	f, ok := s.forks[id]
	if !ok {
		return nil, fmt.Errorf("fork %s: %w", id, domain.ErrNotFound)
	}
	if f.Status.IsTerminal() {
		return nil, fmt.Errorf("fork %s is %s: %w", id, f.Status, fork.ErrTerminal)
	}
	return f, nil
}

// commitLocked appends lines and publishes the update followed by one output
// event per line.
func (s *ForkService) commitLocked(f *fork.Fork, lines ...string) {
	f.Output = append(f.Output, lines...)
	if s.events == nil {
		return
	}
	s.events.Publish(fork.UpdateEvent(f.Clone()))
	for _, line := range lines {
		s.events.Publish(fork.OutputEvent(f.ID, line))
	}
}

// finishLocked moves f to a terminal status and applies retention.
func (s *ForkService) finishLocked(ctx context.Context, f *fork.Fork, status fork.Status, lines ...string) {
	now := s.now()
	f.Status = status
	f.CompletedAt = &now
	s.commitLocked(f, lines...)

	if s.metrics != nil {
		s.metrics.ForksFinished.Add(ctx, 1, pbotel.AgentAttrs(f.Agent, string(status)))
	}
	s.enforceLimitLocked(ctx)
}

// allocateIDLocked returns an id never issued before by this manager, so an
// evicted fork's id is not reused.
func (s *ForkService) allocateIDLocked() string {
	for {
		id := s.newID()
		if _, taken := s.issued[id]; !taken {
			s.issued[id] = struct{}{}
			return id
		}
	}
}

// pidAttr logs the pid value, or "none" when the launcher reported none.
func pidAttr(pid *int) slog.Attr {
	if pid == nil {
		return slog.String("pid", "none")
	}
	return slog.Int("pid", *pid)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
