// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewSessionStarting(t *testing.T) {
	s := New("default")
	defer s.Close()

	snap := s.Snapshot()
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, "default", snap.ProfileName)
	assert.Equal(t, StatusStarting, snap.Status)
	assert.False(t, snap.StartedAt.IsZero())
	assert.True(t, snap.StoppedAt.IsZero())
}

func TestUpdatesAccumulate(t *testing.T) {
	s := New("default")
	defer s.Close()

	bitrate := 5_000_000.0
	s.Post(Update{MarkersInjected: 1, Packets: 1000, Errors: 2})
	s.Post(Update{MarkersInjected: 2, Packets: 500, Bitrate: &bitrate})

	require.Eventually(t, func() bool {
		return s.Snapshot().MarkersInjected == 3
	}, time.Second, time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, uint64(1500), snap.PacketsProcessed)
	assert.Equal(t, uint64(2), snap.ErrorsCount)
	assert.InDelta(t, 5_000_000.0, snap.BitrateBPS, 0.1)
}

func TestStatusTransitionsStampStopTime(t *testing.T) {
	s := New("default")
	defer s.Close()

	s.SetStatus(StatusRunning)
	s.SetStatus(StatusStopped)

	require.Eventually(t, func() bool {
		return s.Snapshot().Status == StatusStopped
	}, time.Second, time.Millisecond)
	assert.False(t, s.Snapshot().StoppedAt.IsZero())
}

func TestRestartCounter(t *testing.T) {
	s := New("default")
	defer s.Close()

	s.Post(Update{Restart: true})
	s.Post(Update{Restart: true})

	require.Eventually(t, func() bool {
		return s.Snapshot().Restarts == 2
	}, time.Second, time.Millisecond)
}

func TestCloseIsIdempotentAndStopsSink(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New("default")
	s.Post(Update{MarkersInjected: 1})
	s.Close()
	s.Close()

	// Posting after close must not block or panic.
	s.Post(Update{MarkersInjected: 1})
	assert.False(t, s.Snapshot().StoppedAt.IsZero())
}
