// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/cue2ts/internal/session"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func snapshot(id string, started time.Time) session.Snapshot {
	return session.Snapshot{
		SessionID:        id,
		ProfileName:      "default",
		Status:           session.StatusStopped,
		StartedAt:        started.UTC(),
		StoppedAt:        started.Add(time.Minute).UTC(),
		PacketsProcessed: 125000,
		ErrorsCount:      2,
		MarkersInjected:  7,
		Restarts:         1,
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	want := snapshot("s-1", time.Now().Truncate(time.Second))
	require.NoError(t, s.Archive(ctx, want))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].StartedAt = got[0].StartedAt.UTC()
	got[0].StoppedAt = got[0].StoppedAt.UTC()
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("archived session mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveUpsertsTerminalStatus(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snap := snapshot("s-1", time.Now().Truncate(time.Second))
	snap.Status = session.StatusRunning
	require.NoError(t, s.Archive(ctx, snap))

	snap.Status = session.StatusFailed
	snap.Restarts = 3
	require.NoError(t, s.Archive(ctx, snap))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, session.StatusFailed, got[0].Status)
	assert.Equal(t, 3, got[0].Restarts)
}

func TestRecentOrderedNewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	require.NoError(t, s.Archive(ctx, snapshot("old", base.Add(-2*time.Hour))))
	require.NoError(t, s.Archive(ctx, snapshot("new", base)))
	require.NoError(t, s.Archive(ctx, snapshot("mid", base.Add(-time.Hour))))

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].SessionID)
	assert.Equal(t, "mid", got[1].SessionID)
}

func TestPruneRemovesOldSessions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	require.NoError(t, s.Archive(ctx, snapshot("ancient", base.Add(-48*time.Hour))))
	require.NoError(t, s.Archive(ctx, snapshot("fresh", base)))

	n, err := s.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].SessionID)
}
