// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package marker builds splice event descriptors and renders them into the
// engine's native splice-information file format.
package marker

import "fmt"

// Kind enumerates the supported splice event kinds.
type Kind uint8

const (
	KindCueOut Kind = iota
	KindCueIn
	KindCueCrash
	KindPreroll
	KindTimeSignal
)

// String returns the canonical lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCueOut:
		return "cue-out"
	case KindCueIn:
		return "cue-in"
	case KindCueCrash:
		return "cue-crash"
	case KindPreroll:
		return "preroll"
	case KindTimeSignal:
		return "time-signal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a canonical name back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "cue-out":
		return KindCueOut, nil
	case "cue-in":
		return KindCueIn, nil
	case "cue-crash":
		return KindCueCrash, nil
	case "preroll":
		return KindPreroll, nil
	case "time-signal":
		return KindTimeSignal, nil
	default:
		return 0, fmt.Errorf("unknown marker kind %q", s)
	}
}

// Timing selects when the engine injects a descriptor.
type Timing uint8

const (
	// TimingImmediate injects at the engine's next opportunity.
	TimingImmediate Timing = iota

	// TimingScheduled injects at a PTS offset. Forbidden for cue-out and
	// preroll: the engine's file cleanup races against the scheduled
	// injection time and silently drops the event.
	TimingScheduled
)

// String returns the canonical name of the timing mode.
func (t Timing) String() string {
	if t == TimingScheduled {
		return "scheduled"
	}
	return "immediate"
}
