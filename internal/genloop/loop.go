// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package genloop keeps a fresh marker file available in the profile
// directory for the whole session. The loop is the directory's only writer
// while it runs: it removes the previous live file and atomically writes the
// next one each tick.
package genloop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/cue2ts/internal/log"
	"github.com/ManuGH/cue2ts/internal/marker"
	"github.com/ManuGH/cue2ts/internal/metrics"
	"github.com/ManuGH/cue2ts/internal/profile"
	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// State is the loop lifecycle. Transitions are Idle -> Running -> Stopping ->
// Idle; a loop that never ran cannot enter Stopping.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "idle"
	}
}

// Config carries the loop parameters.
type Config struct {
	// Interval between regenerations. Callers should validate against the
	// recommended 30s-300s window; the loop only refuses non-positive values.
	Interval time.Duration

	// Params are forwarded to sequence generation.
	Params marker.Params

	// ConsumerDeletes means the engine removes marker files after injection.
	// The loop then skips its own cleanup; deleting from both sides races the
	// injection time.
	ConsumerDeletes bool
}

// Loop regenerates the profile's marker sequence periodically.
type Loop struct {
	cfg    Config
	pctx   *profile.Context
	gen    *marker.Generator
	logger zerolog.Logger

	mu        sync.Mutex
	state     State
	live      string
	ownRemove map[string]struct{}
	primed    bool
}

// New returns an idle Loop for the given profile.
func New(cfg Config, pctx *profile.Context, gen *marker.Generator) *Loop {
	return &Loop{
		cfg:  cfg,
		pctx: pctx,
		gen:  gen,
		logger: log.WithComponent("genloop").With().
			Str(log.FieldProfile, pctx.Name).Logger(),
		ownRemove: make(map[string]struct{}),
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Prime synchronously generates and writes the first marker sequence. It must
// succeed before the engine launches so a file exists at engine start.
func (l *Loop) Prime(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return fmt.Errorf("prime in state %s", l.state)
	}
	l.mu.Unlock()

	if err := l.regenerate(ctx); err != nil {
		return fmt.Errorf("prime marker sequence: %w", err)
	}
	l.mu.Lock()
	l.primed = true
	l.mu.Unlock()
	return nil
}

// Run executes the periodic regeneration until ctx is cancelled. Cancellation
// interrupts the inter-tick wait promptly. Run returns nil on a clean stop.
func (l *Loop) Run(ctx context.Context) error {
	if l.cfg.Interval <= 0 {
		return fmt.Errorf("non-positive loop interval: %s", l.cfg.Interval)
	}

	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return fmt.Errorf("loop already %s", l.state)
	}
	if !l.primed {
		l.mu.Unlock()
		return fmt.Errorf("loop started without priming")
	}
	l.setStateLocked(StateRunning)
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.setStateLocked(StateStopping)
		l.setStateLocked(StateIdle)
		l.primed = false
		l.mu.Unlock()
		if err := l.pctx.Allocator.Persist(); err != nil {
			l.logger.Warn().Err(err).Msg("persist allocator state on stop")
		}
	}()

	// Best-effort consumption telemetry; the loop works without it.
	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.logger.Warn().Err(err).Msg("marker directory watcher unavailable")
	} else {
		defer watcher.Close()
		if err := watcher.Add(l.pctx.MarkerDir); err != nil {
			l.logger.Warn().Err(err).Str(log.FieldMarkerDir, l.pctx.MarkerDir).
				Msg("cannot watch marker directory")
		} else {
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			l.observe(ev)
		case err, ok := <-watchErrs:
			// Left undrained, fsnotify's sender would block and freeze
			// event delivery.
			if ok && err != nil {
				l.logger.Warn().Err(err).Msg("marker directory watcher error")
			}
		case <-ticker.C:
			if err := l.regenerate(ctx); err != nil {
				// Recoverable: log, count, try again next tick.
				metrics.IncMarkerWriteFailure()
				l.logger.Error().Err(err).Msg("marker regeneration failed, retrying next tick")
			}
		}
	}
}

// regenerate removes the previous live file(s) and atomically writes the next
// sequence, then persists the allocator. The single critical section covers
// the allocator advance and the live-file bookkeeping.
func (l *Loop) regenerate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	seq, err := l.gen.GenerateSequence(marker.KindPreroll, l.cfg.Params)
	if err != nil {
		return err
	}
	data, err := marker.RenderSequence(seq)
	if err != nil {
		return err
	}

	if !l.cfg.ConsumerDeletes {
		stale, err := l.pctx.LiveFiles()
		if err != nil {
			return fmt.Errorf("list live markers: %w", err)
		}

		l.mu.Lock()
		for _, f := range stale {
			l.ownRemove[f] = struct{}{}
		}
		l.mu.Unlock()

		for _, f := range stale {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				l.logger.Warn().Err(err).Str(log.FieldPath, f).Msg("remove stale marker file")
			}
		}
	}

	path := filepath.Join(l.pctx.MarkerDir, marker.FileName(seq.BaseID()))
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write marker file %s: %w", path, err)
	}

	l.mu.Lock()
	l.live = path
	l.mu.Unlock()

	if err := l.pctx.Allocator.Persist(); err != nil {
		l.logger.Warn().Err(err).Msg("persist allocator state")
	}

	l.logger.Info().
		Int(log.FieldEventID, seq.BaseID()).
		Str(log.FieldPath, path).
		Msg("marker sequence written")
	return nil
}

// observe attributes marker file removals: deletions the loop performed are
// bookkeeping, anything else is the engine consuming the file.
func (l *Loop) observe(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	if ok, _ := filepath.Match(marker.FilePattern, filepath.Base(ev.Name)); !ok {
		return
	}

	l.mu.Lock()
	_, own := l.ownRemove[ev.Name]
	if own {
		delete(l.ownRemove, ev.Name)
	}
	l.mu.Unlock()

	if !own {
		metrics.IncMarkerConsumed()
		l.logger.Debug().Str(log.FieldPath, ev.Name).Msg("marker file consumed by engine")
	}
}

func (l *Loop) setStateLocked(next State) {
	if l.state == next {
		return
	}
	l.logger.Debug().
		Str(log.FieldOldState, l.state.String()).
		Str(log.FieldNewState, next.String()).
		Msg("loop state changed")
	l.state = next
}
