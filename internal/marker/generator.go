// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package marker

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/cue2ts/internal/eventid"
	"github.com/ManuGH/cue2ts/internal/log"
	"github.com/ManuGH/cue2ts/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrScheduledForbidden rejects scheduled timing on cue-out and preroll
// descriptors.
var ErrScheduledForbidden = errors.New("scheduled timing forbidden for cue-out and preroll markers")

// Params carries caller-supplied generation parameters.
type Params struct {
	BreakDuration   time.Duration
	AutoReturn      bool
	Timing          Timing
	ScheduledOffset time.Duration
}

// Generator builds descriptors and sequences on top of a profile's allocator.
type Generator struct {
	alloc  *eventid.Allocator
	logger zerolog.Logger
}

// NewGenerator returns a Generator bound to the given allocator.
func NewGenerator(alloc *eventid.Allocator) *Generator {
	return &Generator{
		alloc:  alloc,
		logger: log.WithComponent("marker"),
	}
}

// Generate builds a single descriptor of the given kind.
func (g *Generator) Generate(kind Kind, p Params) (Descriptor, error) {
	if p.Timing == TimingScheduled && (kind == KindCueOut || kind == KindPreroll) {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrScheduledForbidden, kind)
	}
	if p.BreakDuration < 0 {
		return Descriptor{}, fmt.Errorf("negative break duration: %s", p.BreakDuration)
	}

	id := g.alloc.Allocate()
	d := Descriptor{
		EventID:         id,
		Kind:            kind,
		Timing:          p.Timing,
		ScheduledOffset: p.ScheduledOffset,
	}
	switch kind {
	case KindCueOut, KindPreroll:
		d.OutOfNetwork = true
		d.BreakDuration = p.BreakDuration
		d.AutoReturn = p.AutoReturn
		d.Timing = TimingImmediate
	case KindCueIn, KindCueCrash:
		d.OutOfNetwork = false
	case KindTimeSignal:
		// No break attributes on a time signal.
	}

	metrics.IncMarkerGenerated(kind.String())
	g.logger.Debug().
		Int(log.FieldEventID, id).
		Str(log.FieldKind, kind.String()).
		Str(log.FieldTiming, d.Timing.String()).
		Msg("descriptor generated")
	return d, nil
}

// GenerateSequence builds the full preroll triple [cue-out, cue-in, cue-crash]
// with contiguous ascending ids. The hint kind is deliberately ignored: a
// caller asking for a single cue-in once produced streams of unpaired cue-in
// markers, so any sequence request yields the complete triple.
func (g *Generator) GenerateSequence(hint Kind, p Params) (Sequence, error) {
	if p.BreakDuration < 0 {
		return nil, fmt.Errorf("negative break duration: %s", p.BreakDuration)
	}
	if hint != KindPreroll {
		g.logger.Debug().
			Str(log.FieldKind, hint.String()).
			Msg("sequence hint ignored, emitting full preroll triple")
	}

	ids := g.alloc.AllocateBatch(3)
	seq := Sequence{
		{
			EventID:       ids[0],
			Kind:          KindCueOut,
			Timing:        TimingImmediate,
			BreakDuration: p.BreakDuration,
			OutOfNetwork:  true,
			AutoReturn:    p.AutoReturn,
		},
		{
			EventID: ids[1],
			Kind:    KindCueIn,
			Timing:  TimingImmediate,
		},
		{
			EventID: ids[2],
			Kind:    KindCueCrash,
			Timing:  TimingImmediate,
		},
	}

	for _, d := range seq {
		metrics.IncMarkerGenerated(d.Kind.String())
	}
	g.logger.Debug().
		Int(log.FieldEventID, ids[0]).
		Msg("preroll sequence generated")
	return seq, nil
}
