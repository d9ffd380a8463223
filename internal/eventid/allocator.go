// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package eventid allocates splice event ids from a persisted per-profile
// monotonic counter.
package eventid

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ManuGH/cue2ts/internal/log"
	"github.com/ManuGH/cue2ts/internal/metrics"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

const (
	// Seed is the initial counter value for a fresh or reset state file.
	Seed = 10023

	// Min and Max bound the allocatable id range. Ids above Max wrap to Min;
	// callers must tolerate post-wraparound id reuse.
	Min = 10000
	Max = 99999
)

// state is the on-disk representation, one JSON object per profile.
type state struct {
	LastEventID int `json:"lastEventId"`
}

// Allocator hands out event ids for one profile. Allocation and persistence
// share a single critical section so a loop tick and a manual trigger can
// never observe duplicate ids.
type Allocator struct {
	mu        sync.Mutex
	statePath string
	last      int
	logger    zerolog.Logger
}

// Load constructs an Allocator from the state file at statePath. A missing or
// corrupt state file resets the counter to the seed value, warns and continues.
func Load(statePath string) *Allocator {
	logger := log.WithComponent("eventid").With().
		Str(log.FieldStateFile, statePath).Logger()

	a := &Allocator{
		statePath: statePath,
		last:      Seed,
		logger:    logger,
	}

	data, err := os.ReadFile(statePath) // #nosec G304 -- path derives from the resolved profile
	if err != nil {
		if os.IsNotExist(err) {
			// Normal on first boot of a profile.
			logger.Debug().Int(log.FieldEventID, Seed).Msg("no allocator state, seeding")
			return a
		}
		logger.Warn().Err(err).Msg("unreadable allocator state, resetting to seed")
		metrics.IncAllocatorReset()
		return a
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil || st.LastEventID < Min || st.LastEventID > Max {
		logger.Warn().Err(err).Int(log.FieldEventID, st.LastEventID).
			Msg("corrupt allocator state, resetting to seed")
		metrics.IncAllocatorReset()
		return a
	}

	a.last = st.LastEventID
	logger.Debug().Int(log.FieldEventID, a.last).Msg("allocator state loaded")
	return a
}

// Allocate returns the next event id, wrapping silently from Max to Min.
func (a *Allocator) Allocate() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next()
}

// AllocateBatch returns n contiguous ascending ids. A batch that would cross
// Max restarts at Min so the ids stay contiguous.
func (a *Allocator) AllocateBatch(n int) []int {
	if n <= 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.last+n > Max {
		a.last = Min - 1
	}
	ids := make([]int, n)
	for i := range ids {
		ids[i] = a.next()
	}
	return ids
}

// Last returns the most recently allocated id.
func (a *Allocator) Last() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Persist durably writes the allocator state (temp write, fsync, rename).
func (a *Allocator) Persist() error {
	a.mu.Lock()
	st := state{LastEventID: a.last}
	a.mu.Unlock()

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal allocator state: %w", err)
	}
	if err := renameio.WriteFile(a.statePath, data, 0o644); err != nil {
		return fmt.Errorf("write allocator state %s: %w", a.statePath, err)
	}
	return nil
}

// next advances the counter. Caller must hold a.mu.
func (a *Allocator) next() int {
	id := a.last + 1
	if id > Max {
		id = Min
	}
	a.last = id
	return id
}
