// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package supervisor owns the engine process lifecycle and runs the
// generation loop and telemetry parser in lockstep with it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/cue2ts/internal/archive"
	"github.com/ManuGH/cue2ts/internal/config"
	"github.com/ManuGH/cue2ts/internal/engine"
	"github.com/ManuGH/cue2ts/internal/genloop"
	"github.com/ManuGH/cue2ts/internal/log"
	"github.com/ManuGH/cue2ts/internal/marker"
	"github.com/ManuGH/cue2ts/internal/metrics"
	"github.com/ManuGH/cue2ts/internal/profile"
	"github.com/ManuGH/cue2ts/internal/session"
	"github.com/ManuGH/cue2ts/internal/telemetry"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSessionActive rejects Start while a session is running.
	ErrSessionActive = errors.New("a session is already active")

	// ErrNoSession rejects Stop without a running session.
	ErrNoSession = errors.New("no active session")

	// ErrLaunchFailed marks an initial engine launch failure. Fatal, no retry.
	ErrLaunchFailed = errors.New("engine launch failed")

	// ErrRetryBudgetExhausted concludes a session whose engine kept crashing.
	ErrRetryBudgetExhausted = errors.New("engine retry budget exhausted")
)

// Supervisor coordinates profile resolution, marker generation, the engine
// process and its telemetry for one session at a time.
type Supervisor struct {
	cfg      config.Config
	launcher engine.Launcher
	profiles *profile.Manager
	store    *archive.Store // optional
	logger   zerolog.Logger

	mu       sync.Mutex
	starting bool
	sess     *session.Session
	cancel   context.CancelFunc
	done     chan struct{}
}

// New returns a Supervisor. store may be nil to disable session archiving.
func New(cfg config.Config, launcher engine.Launcher, profiles *profile.Manager, store *archive.Store) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		launcher: launcher,
		profiles: profiles,
		store:    store,
		logger:   log.WithComponent("supervisor"),
	}
}

// Start resolves the profile, writes the first marker sequence, launches the
// engine and starts the generation loop and telemetry parser. Fatal errors
// (path mismatch, first write, launch) abort the start; later crashes are
// retried internally within the configured budget.
func (s *Supervisor) Start(ctx context.Context, profileName string) (*session.Session, error) {
	// The starting flag covers the whole launch phase, so two concurrent
	// Start calls can never both pass the active check and race two engines
	// into the same profile directory.
	s.mu.Lock()
	if s.starting {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	if s.cancel != nil {
		select {
		case <-s.done:
			// Previous session already concluded on its own.
			s.cancel = nil
			s.done = nil
		default:
			s.mu.Unlock()
			return nil, ErrSessionActive
		}
	}
	s.starting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
	}()

	pctx, err := s.profiles.Switch(profileName)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	sess := session.New(pctx.Name)
	ctx = log.ContextWithSessionID(ctx, sess.ID())
	ctx = log.ContextWithProfile(ctx, pctx.Name)
	logger := log.WithContext(ctx, s.logger)

	gen := marker.NewGenerator(pctx.Allocator)
	loop := genloop.New(s.loopConfig(), pctx, gen)

	// The first sequence must exist on disk before the engine polls.
	if err := loop.Prime(ctx); err != nil {
		s.conclude(sess, session.StatusFailed)
		return nil, fmt.Errorf("start session: %w", err)
	}

	if s.cfg.StartDelay > 0 {
		select {
		case <-ctx.Done():
			s.conclude(sess, session.StatusStopped)
			return nil, ctx.Err()
		case <-time.After(s.cfg.StartDelay):
		}
	}

	inv := engine.BuildInvocation(s.cfg.EngineBin, s.engineSpec(pctx))
	handle, err := s.launcher.Launch(ctx, inv)
	if err != nil {
		s.conclude(sess, session.StatusFailed)
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	s.mu.Lock()
	s.sess = sess
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	sess.SetStatus(session.StatusRunning)
	logger.Info().Int(log.FieldPID, handle.PID()).Msg("session started")

	go func() {
		defer close(done)
		s.run(runCtx, sess, pctx, gen, inv, loop, handle)
	}()
	return sess, nil
}

// Stop cancels the running session and waits for all workers to join.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel == nil {
		return ErrNoSession
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("stop session: %w", ctx.Err())
	}

	s.mu.Lock()
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
	return nil
}

// Snapshot returns the current (or most recent) session state.
func (s *Supervisor) Snapshot() (session.Snapshot, bool) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess == nil {
		return session.Snapshot{}, false
	}
	return sess.Snapshot(), true
}

// run drives the crash/retry lifecycle until clean stop or budget exhaustion.
// Allocator and profile state live outside the per-attempt scope, so relaunch
// continues the event-id stream without reset or duplication.
func (s *Supervisor) run(ctx context.Context, sess *session.Session, pctx *profile.Context,
	gen *marker.Generator, inv engine.Invocation, loop *genloop.Loop, handle engine.Handle) {

	logger := log.WithContext(ctx, s.logger)

	bo := backoff.NewExponentialBackOff()
	if s.cfg.RetryBackoff > 0 {
		bo.InitialInterval = s.cfg.RetryBackoff
	}
	bo.MaxInterval = 30 * time.Second

	attempt := 1
	for {
		err := s.runOnce(ctx, sess, loop, handle)

		if ctx.Err() != nil {
			logger.Info().Msg("session stopped")
			metrics.IncEngineExit("stopped")
			s.conclude(sess, session.StatusStopped)
			return
		}

		metrics.IncEngineExit("crash")
		if attempt >= s.cfg.RetryBudget+1 {
			logger.Error().Err(errors.Join(ErrRetryBudgetExhausted, err)).
				Int(log.FieldAttempt, attempt).
				Msg("session failed")
			s.conclude(sess, session.StatusFailed)
			return
		}

		wait := bo.NextBackOff()
		logger.Warn().Err(err).
			Int(log.FieldAttempt, attempt).
			Dur("backoff", wait).
			Msg("engine exited unexpectedly, relaunching")

		select {
		case <-ctx.Done():
			s.conclude(sess, session.StatusStopped)
			return
		case <-time.After(wait):
		}

		attempt++
		sess.Post(session.Update{Restart: true})
		metrics.IncEngineRestart()

		// Fresh workers per attempt; the previous set is fully joined by now.
		loop = genloop.New(s.loopConfig(), pctx, gen)
		if err := loop.Prime(ctx); err != nil {
			logger.Error().Err(err).Msg("re-prime failed before relaunch")
			handle = nil
			continue
		}
		handle, err = s.launcher.Launch(ctx, inv)
		if err != nil {
			logger.Error().Err(err).Msg("relaunch failed")
			handle = nil
			continue
		}
	}
}

// runOnce runs one engine attempt: generation loop, telemetry parser and the
// exit watcher. It returns only after every worker has joined.
func (s *Supervisor) runOnce(ctx context.Context, sess *session.Session, loop *genloop.Loop, handle engine.Handle) error {
	if handle == nil {
		return errors.New("no engine process")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})

	g.Go(func() error {
		p := telemetry.New(sess)
		// Read errors are end-of-stream, never session failure.
		if err := p.Run(gctx, handle.Stdout()); err != nil && gctx.Err() == nil {
			logger := log.WithContext(gctx, s.logger)
			logger.Debug().Err(err).Msg("telemetry stream closed")
		}
		return nil
	})

	g.Go(func() error {
		select {
		case err := <-handle.Wait():
			if gctx.Err() != nil {
				return nil
			}
			if err != nil {
				return fmt.Errorf("engine process crashed: %w", err)
			}
			// A voluntary exit mid-session still ends the attempt.
			return errors.New("engine process exited during active session")
		case <-gctx.Done():
			if err := handle.Terminate(s.cfg.GraceTimeout); err != nil {
				logger := log.WithContext(gctx, s.logger)
				logger.Debug().Err(err).Msg("engine terminated")
			}
			return nil
		}
	})

	return g.Wait()
}

// conclude moves the session to its terminal status, archives and closes it.
func (s *Supervisor) conclude(sess *session.Session, st session.Status) {
	sess.SetStatus(st)
	s.archive(sess)
	sess.Close()
}

func (s *Supervisor) archive(sess *session.Session) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap := sess.Snapshot()
	if err := s.store.Archive(ctx, snap); err != nil {
		s.logger.Warn().Err(err).
			Str(log.FieldSessionID, snap.SessionID).
			Msg("archive session")
	}
}

func (s *Supervisor) loopConfig() genloop.Config {
	return genloop.Config{
		Interval: s.cfg.InjectInterval,
		Params: marker.Params{
			BreakDuration: s.cfg.BreakDuration,
			AutoReturn:    s.cfg.AutoReturn,
		},
		ConsumerDeletes: s.cfg.ConsumerDeletes,
	}
}

func (s *Supervisor) engineSpec(pctx *profile.Context) engine.Spec {
	return engine.Spec{
		Input:           s.cfg.Input,
		Output:          s.cfg.Output,
		MarkerGlob:      pctx.Glob(),
		PollInterval:    s.cfg.PollInterval,
		MetricsInterval: s.cfg.MetricsInterval,
		MetricsJSON:     s.cfg.MetricsJSON,
		// Exactly one side deletes marker files. With the flag unset the loop
		// owns cleanup; with it set the engine does and the loop stands down.
		ConsumerDeletes: s.cfg.ConsumerDeletes,
	}
}
