// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package marker

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/cue2ts/internal/eventid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	return NewGenerator(eventid.Load(filepath.Join(t.TempDir(), "state.json")))
}

func TestGenerateSequenceAlwaysFullTriple(t *testing.T) {
	g := newGenerator(t)

	// Regardless of the hint kind, the full triple comes back. A bare cue-in
	// hint is exactly the shape of the historic unpaired-cue-in defect.
	for _, hint := range []Kind{KindPreroll, KindCueIn, KindCueOut, KindCueCrash, KindTimeSignal} {
		seq, err := g.GenerateSequence(hint, Params{BreakDuration: 30 * time.Second, AutoReturn: true})
		require.NoError(t, err, "hint %s", hint)
		require.Len(t, seq, 3)

		assert.Equal(t, KindCueOut, seq[0].Kind)
		assert.Equal(t, KindCueIn, seq[1].Kind)
		assert.Equal(t, KindCueCrash, seq[2].Kind)
	}
}

func TestGenerateSequenceContiguousIDs(t *testing.T) {
	g := newGenerator(t)

	first, err := g.GenerateSequence(KindPreroll, Params{BreakDuration: time.Minute})
	require.NoError(t, err)
	second, err := g.GenerateSequence(KindPreroll, Params{BreakDuration: time.Minute})
	require.NoError(t, err)

	assert.Equal(t, first[0].EventID+1, first[1].EventID, "cue-in id is cue-out id + 1")
	assert.Equal(t, first[0].EventID+2, first[2].EventID)
	assert.Equal(t, first[0].EventID+3, second[0].EventID, "next batch continues contiguously")
}

func TestGenerateSequenceTimingAlwaysImmediate(t *testing.T) {
	g := newGenerator(t)

	seq, err := g.GenerateSequence(KindPreroll, Params{
		BreakDuration:   30 * time.Second,
		Timing:          TimingScheduled,
		ScheduledOffset: 10 * time.Second,
	})
	require.NoError(t, err)
	for _, d := range seq {
		assert.Equal(t, TimingImmediate, d.Timing, "%s must be immediate", d.Kind)
	}
}

func TestGenerateCueOutRejectsScheduled(t *testing.T) {
	g := newGenerator(t)

	_, err := g.Generate(KindCueOut, Params{Timing: TimingScheduled, ScheduledOffset: 5 * time.Second})
	require.ErrorIs(t, err, ErrScheduledForbidden)

	_, err = g.Generate(KindPreroll, Params{Timing: TimingScheduled})
	require.ErrorIs(t, err, ErrScheduledForbidden)
}

func TestGenerateCueOutAttributes(t *testing.T) {
	g := newGenerator(t)

	d, err := g.Generate(KindCueOut, Params{BreakDuration: 90 * time.Second, AutoReturn: true})
	require.NoError(t, err)
	assert.True(t, d.OutOfNetwork)
	assert.True(t, d.AutoReturn)
	assert.Equal(t, 90*time.Second, d.BreakDuration)
	assert.Equal(t, TimingImmediate, d.Timing)
}

func TestGenerateCueInBackInNetwork(t *testing.T) {
	g := newGenerator(t)

	d, err := g.Generate(KindCueIn, Params{})
	require.NoError(t, err)
	assert.False(t, d.OutOfNetwork)
	assert.Zero(t, d.BreakDuration)
}

func TestGenerateRejectsNegativeDuration(t *testing.T) {
	g := newGenerator(t)

	_, err := g.Generate(KindCueOut, Params{BreakDuration: -time.Second})
	require.Error(t, err)

	_, err = g.GenerateSequence(KindPreroll, Params{BreakDuration: -time.Second})
	require.Error(t, err)
}

func TestTicks(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want uint64
	}{
		{0, 0},
		{time.Second, 90000},
		{30 * time.Second, 2700000},
		{500 * time.Millisecond, 45000},
		{-time.Second, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Ticks(tc.in), "ticks(%s)", tc.in)
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindCueOut, KindCueIn, KindCueCrash, KindPreroll, KindTimeSignal} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("bogus")
	assert.Error(t, err)
}
