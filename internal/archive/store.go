// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package archive persists finished sessions to a per-data-dir SQLite
// database for later inspection.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/cue2ts/internal/session"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id        TEXT PRIMARY KEY,
	profile_name      TEXT NOT NULL,
	status            TEXT NOT NULL,
	started_at        TIMESTAMP NOT NULL,
	stopped_at        TIMESTAMP,
	packets_processed INTEGER NOT NULL DEFAULT 0,
	errors_count      INTEGER NOT NULL DEFAULT 0,
	markers_injected  INTEGER NOT NULL DEFAULT 0,
	restarts          INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions (started_at DESC);
`

// Store is the session archive.
type Store struct {
	db *sql.DB
}

// Open creates or opens the archive database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session archive %s: %w", path, err)
	}
	// The archive is written by a single daemon; one connection avoids
	// SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Archive upserts a finished session snapshot.
func (s *Store) Archive(ctx context.Context, snap session.Snapshot) error {
	var stopped any
	if !snap.StoppedAt.IsZero() {
		stopped = snap.StoppedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			session_id, profile_name, status, started_at, stopped_at,
			packets_processed, errors_count, markers_injected, restarts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			stopped_at = excluded.stopped_at,
			packets_processed = excluded.packets_processed,
			errors_count = excluded.errors_count,
			markers_injected = excluded.markers_injected,
			restarts = excluded.restarts`,
		snap.SessionID, snap.ProfileName, string(snap.Status), snap.StartedAt.UTC(), stopped,
		snap.PacketsProcessed, snap.ErrorsCount, snap.MarkersInjected, snap.Restarts,
	)
	if err != nil {
		return fmt.Errorf("archive session %s: %w", snap.SessionID, err)
	}
	return nil
}

// Recent returns up to limit archived sessions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]session.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, profile_name, status, started_at, stopped_at,
		       packets_processed, errors_count, markers_injected, restarts
		FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query archived sessions: %w", err)
	}
	defer rows.Close()

	var out []session.Snapshot
	for rows.Next() {
		var snap session.Snapshot
		var status string
		var stopped sql.NullTime
		if err := rows.Scan(&snap.SessionID, &snap.ProfileName, &status, &snap.StartedAt,
			&stopped, &snap.PacketsProcessed, &snap.ErrorsCount, &snap.MarkersInjected, &snap.Restarts); err != nil {
			return nil, fmt.Errorf("scan archived session: %w", err)
		}
		snap.Status = session.Status(status)
		if stopped.Valid {
			snap.StoppedAt = stopped.Time
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Prune deletes archived sessions older than the retention window.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE started_at < ?`, time.Now().Add(-retention).UTC())
	if err != nil {
		return 0, fmt.Errorf("prune session archive: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
