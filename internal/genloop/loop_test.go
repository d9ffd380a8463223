// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package genloop

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/cue2ts/internal/marker"
	"github.com/ManuGH/cue2ts/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newLoop(t *testing.T, interval time.Duration) (*Loop, *profile.Context) {
	t.Helper()
	pctx, err := profile.Resolve(t.TempDir(), "")
	require.NoError(t, err)

	gen := marker.NewGenerator(pctx.Allocator)
	l := New(Config{
		Interval: interval,
		Params:   marker.Params{BreakDuration: 30 * time.Second, AutoReturn: true},
	}, pctx, gen)
	return l, pctx
}

func baseID(path string) (int, bool) {
	name := filepath.Base(path)
	name = strings.TrimPrefix(name, "splice_")
	name = strings.TrimSuffix(name, ".xml")
	id, err := strconv.Atoi(name)
	return id, err == nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

func TestPrimeWritesFirstSequence(t *testing.T) {
	l, pctx := newLoop(t, time.Minute)

	require.NoError(t, l.Prime(context.Background()))

	files, err := pctx.LiveFiles()
	require.NoError(t, err)
	require.Len(t, files, 1, "exactly one marker file after priming")

	data, err := readFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, data, "splice_information_table")
	assert.Contains(t, data, "out_of_network=\"true\"")
}

func TestRunWithoutPrimeFails(t *testing.T) {
	l, _ := newLoop(t, time.Minute)
	require.Error(t, l.Run(context.Background()))
}

func TestRunRejectsBadInterval(t *testing.T) {
	l, _ := newLoop(t, 0)
	require.NoError(t, l.Prime(context.Background()))
	require.Error(t, l.Run(context.Background()))
}

func TestSingleLiveFileInvariant(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, pctx := newLoop(t, 20*time.Millisecond)
	require.NoError(t, l.Prime(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.After(300 * time.Millisecond)
sample:
	for {
		select {
		case <-deadline:
			break sample
		case <-time.After(3 * time.Millisecond):
			files, err := pctx.LiveFiles()
			require.NoError(t, err)
			assert.LessOrEqual(t, len(files), 1, "at most one live marker file")
		}
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, l.State())
}

func TestTicksAdvanceBatchesByThree(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, pctx := newLoop(t, 25*time.Millisecond)
	require.NoError(t, l.Prime(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var ids []int
	seen := make(map[int]bool)
	require.Eventually(t, func() bool {
		files, err := pctx.LiveFiles()
		if err != nil || len(files) != 1 {
			return false
		}
		id, ok := baseID(files[0])
		if !ok {
			return false
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
		return len(ids) >= 3
	}, 2*time.Second, 2*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	for i := 1; i < len(ids); i++ {
		assert.Equal(t, ids[i-1]+3, ids[i], "each batch's base id advances by 3")
	}
}

func TestCancellationInterruptsSleepPromptly(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Interval far beyond the test budget; cancellation must not wait it out.
	l, _ := newLoop(t, time.Hour)
	require.NoError(t, l.Prime(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.State() == StateRunning }, time.Second, time.Millisecond)

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop within 1s of cancellation")
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StateIdle, l.State())
}

func TestStatePersistsAcrossLoopInstances(t *testing.T) {
	l, pctx := newLoop(t, time.Minute)
	require.NoError(t, l.Prime(context.Background()))
	lastAfterPrime := pctx.Allocator.Last()

	// A fresh loop over the same profile continues the id stream.
	gen := marker.NewGenerator(pctx.Allocator)
	l2 := New(Config{Interval: time.Minute, Params: marker.Params{BreakDuration: time.Minute}}, pctx, gen)
	require.NoError(t, l2.Prime(context.Background()))

	assert.Equal(t, lastAfterPrime+3, pctx.Allocator.Last())
}
