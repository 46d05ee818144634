// Package scheduler implements the single long-running dequeue loop that
// dispatches Jobs to the Executor under a bounded concurrency cap, per
// spec.md §4.4 and §5.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/docwizard/engine/internal/executor"
	"github.com/docwizard/engine/internal/promptstore"
	"github.com/docwizard/engine/internal/queue"
	"github.com/docwizard/engine/internal/sessionstore"
	"github.com/docwizard/engine/pkg/types"
)

// DefaultMaxConcurrentProcessing is the default executor concurrency cap
// (spec.md §5, "MAX_CONCURRENT_PROCESSING default 5").
const DefaultMaxConcurrentProcessing = 5

// DefaultCleanupInterval is how often the Scheduler sweeps expired
// sessions (spec.md §6 config table, "cleanup interval ms" default).
const DefaultCleanupInterval = time.Hour

// Scheduler is the single dequeue loop. It owns no goroutine of its own
// until Run is called.
type Scheduler struct {
	queue    *queue.Queue
	prompts  *promptstore.Store
	sessions *sessionstore.Store
	executor *executor.Executor
	log      zerolog.Logger

	maxConcurrent   int
	cleanupInterval time.Duration

	mu       sync.Mutex
	inFlight map[string]bool // prompt id -> in-flight

	sessionMu   sync.Mutex
	sessionLock map[string]*sync.Mutex // session id -> lock held for one Executor run

	notify chan struct{}
}

// Config bundles the collaborators and tunables a Scheduler is built from.
type Config struct {
	Queue           *queue.Queue
	Prompts         *promptstore.Store
	Sessions        *sessionstore.Store
	Executor        *executor.Executor
	Logger          zerolog.Logger
	MaxConcurrent   int
	CleanupInterval time.Duration
}

// New creates a Scheduler from its collaborators.
func New(cfg Config) *Scheduler {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentProcessing
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	return &Scheduler{
		queue:           cfg.Queue,
		prompts:         cfg.Prompts,
		sessions:        cfg.Sessions,
		executor:        cfg.Executor,
		log:             cfg.Logger.With().Str("component", "scheduler").Logger(),
		maxConcurrent:   maxConcurrent,
		cleanupInterval: cleanupInterval,
		inFlight:        make(map[string]bool),
		sessionLock:     make(map[string]*sync.Mutex),
		notify:          make(chan struct{}, 1),
	}
}

// lockForSession returns the mutex a dispatched job must hold for the
// duration of its Executor run, creating it on first use. Keying by
// session id (rather than one global lock) keeps unrelated sessions fully
// concurrent while guaranteeing two jobs from the same session never run
// their pipelines at once, per spec.md §5's per-session serialization.
func (s *Scheduler) lockForSession(sessionID string) *sync.Mutex {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	m, ok := s.sessionLock[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.sessionLock[sessionID] = m
	}
	return m
}

// Notify wakes the scheduler's dequeue loop, intended to be called right
// after a successful enqueue so the loop does not wait out its idle sleep.
func (s *Scheduler) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run drives the dequeue loop until ctx is cancelled. It also runs a
// cleanup ticker sweeping expired sessions on a fixed interval (spec.md
// §4.1 cleanupExpired).
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.dequeueLoop(gctx) })
	g.Go(func() error { return s.cleanupLoop(gctx) })

	return g.Wait()
}

func (s *Scheduler) dequeueLoop(ctx context.Context) error {
	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		default:
		}

		job, ok, err := s.queue.Pop(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("queue pop failed")
			continue
		}
		if !ok {
			select {
			case <-ctx.Done():
				wg.Wait()
				return ctx.Err()
			case <-s.notify:
				continue
			case <-time.After(time.Second):
				continue
			}
		}

		if s.shouldDrop(ctx, job) {
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(j types.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			s.dispatch(ctx, j)
		}(job)
	}
}

// shouldDrop applies the idempotency guard and lazy cancellation: a job
// whose prompt is already PROCESSING/COMPLETED, or whose session has
// transitioned to EXPIRED/FAILED, is dropped rather than dispatched.
func (s *Scheduler) shouldDrop(ctx context.Context, job types.Job) bool {
	prompt, err := s.prompts.GetPrompt(ctx, job.PromptID)
	if err != nil || prompt == nil {
		return true
	}
	if prompt.Status == types.PromptProcessing || prompt.Status == types.PromptCompleted {
		return true
	}

	sess, err := s.sessions.GetSession(ctx, job.SessionID)
	if err != nil || sess == nil {
		return true
	}
	if sess.Status == types.SessionExpired || sess.Status == types.SessionFailed {
		if _, err := s.queue.Remove(ctx, job.SessionID); err != nil {
			s.log.Warn().Err(err).Str("session", job.SessionID).Msg("failed to purge cancelled session's queued jobs")
		}
		return true
	}
	return false
}

// dispatch marks the job's prompt and session PROCESSING, tracks it in the
// in-flight set, and runs the Executor while holding that session's lock —
// so two jobs belonging to the same session never execute concurrently,
// which is what lets the Executor treat "completed lower-priority prompts"
// as a stable snapshot instead of a moving target (spec.md §5).
func (s *Scheduler) dispatch(ctx context.Context, job types.Job) {
	sessionLock := s.lockForSession(job.SessionID)
	sessionLock.Lock()
	defer sessionLock.Unlock()

	s.mu.Lock()
	s.inFlight[job.PromptID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, job.PromptID)
		s.mu.Unlock()
	}()

	if err := s.prompts.UpdateStatus(ctx, job.PromptID, types.PromptProcessing); err != nil {
		s.log.Error().Err(err).Str("prompt", job.PromptID).Msg("failed to mark prompt PROCESSING")
		return
	}
	if err := s.sessions.UpdateStatus(ctx, job.SessionID, types.SessionProcessing); err != nil {
		s.log.Error().Err(err).Str("session", job.SessionID).Msg("failed to mark session PROCESSING")
		return
	}

	if err := s.executor.Run(ctx, job); err != nil {
		s.log.Warn().Err(err).Str("prompt", job.PromptID).Msg("executor run failed")
	}
}

// InFlightCount returns the number of prompts currently dispatched to an
// executor.
func (s *Scheduler) InFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

func (s *Scheduler) cleanupLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.sessions.CleanupExpired(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("cleanup sweep failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int("count", n).Msg("expired sessions cleaned up")
			}
		}
	}
}
