// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package session holds the mutable state of one stream session. Workers post
// updates over a channel; a single sink goroutine applies them, so the only
// lock is a read guard for snapshots.
package session

import (
	"sync"
	"time"

	"github.com/ManuGH/cue2ts/internal/log"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status enumerates the session lifecycle states.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusFailed   Status = "failed"
)

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	SessionID        string    `json:"sessionId"`
	ProfileName      string    `json:"profileName"`
	Status           Status    `json:"status"`
	StartedAt        time.Time `json:"startedAt"`
	StoppedAt        time.Time `json:"stoppedAt,omitzero"`
	PacketsProcessed uint64    `json:"packetsProcessed"`
	ErrorsCount      uint64    `json:"errorsCount"`
	MarkersInjected  uint64    `json:"markersInjected"`
	BitrateBPS       float64   `json:"bitrateBps"`
	Restarts         int       `json:"restarts"`
}

// Update is one state delta posted by a worker. Counter fields are deltas;
// Bitrate is a gauge; a non-nil Status replaces the lifecycle state.
type Update struct {
	MarkersInjected uint64
	Packets         uint64
	Errors          uint64
	Bitrate         *float64
	Restart         bool
	Status          *Status
}

// Session is the shared state of one engine run.
type Session struct {
	updates chan Update
	done    chan struct{}

	mu   sync.RWMutex
	snap Snapshot

	logger zerolog.Logger
}

// New creates a session in StatusStarting and starts its update sink.
func New(profileName string) *Session {
	s := &Session{
		updates: make(chan Update, 256),
		done:    make(chan struct{}),
		snap: Snapshot{
			SessionID:   uuid.NewString(),
			ProfileName: profileName,
			Status:      StatusStarting,
			StartedAt:   time.Now(),
		},
	}
	s.logger = log.WithComponent("session").With().
		Str(log.FieldSessionID, s.snap.SessionID).
		Str(log.FieldProfile, profileName).Logger()

	go s.sink()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.SessionID
}

// Post queues an update. Posting to a closed session is a silent no-op so a
// late worker can never panic the daemon.
func (s *Session) Post(u Update) {
	select {
	case <-s.done:
	case s.updates <- u:
	}
}

// SetStatus posts a lifecycle transition.
func (s *Session) SetStatus(st Status) {
	s.Post(Update{Status: &st})
}

// Snapshot returns a consistent copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close stops the sink and stamps the stop time. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return
	default:
	}
	close(s.done)
	if s.snap.StoppedAt.IsZero() {
		s.snap.StoppedAt = time.Now()
	}
	s.mu.Unlock()
}

func (s *Session) sink() {
	for {
		select {
		case <-s.done:
			// Drain whatever was queued before Close.
			for {
				select {
				case u := <-s.updates:
					s.apply(u)
				default:
					return
				}
			}
		case u := <-s.updates:
			s.apply(u)
		}
	}
}

func (s *Session) apply(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.MarkersInjected += u.MarkersInjected
	s.snap.PacketsProcessed += u.Packets
	s.snap.ErrorsCount += u.Errors
	if u.Bitrate != nil {
		s.snap.BitrateBPS = *u.Bitrate
	}
	if u.Restart {
		s.snap.Restarts++
	}
	if u.Status != nil && *u.Status != s.snap.Status {
		s.logger.Info().
			Str(log.FieldOldState, string(s.snap.Status)).
			Str(log.FieldNewState, string(*u.Status)).
			Msg("session status changed")
		s.snap.Status = *u.Status
		if (*u.Status == StatusStopped || *u.Status == StatusFailed) && s.snap.StoppedAt.IsZero() {
			s.snap.StoppedAt = time.Now()
		}
	}
}
