// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package marker

import "time"

// Descriptor is one splice event as handed to the engine.
type Descriptor struct {
	EventID         int
	Kind            Kind
	Timing          Timing
	ScheduledOffset time.Duration // only meaningful with TimingScheduled
	BreakDuration   time.Duration
	OutOfNetwork    bool
	AutoReturn      bool
}

// Sequence is a batch of 1-3 descriptors generated together. Ids within one
// sequence are contiguous ascending integers; a paired cue-in's id is its
// cue-out's id + 1.
type Sequence []Descriptor

// BaseID returns the first event id of the sequence, or 0 when empty.
func (s Sequence) BaseID() int {
	if len(s) == 0 {
		return 0
	}
	return s[0].EventID
}
