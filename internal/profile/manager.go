// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package profile

import (
	"fmt"
	"sync"

	"github.com/ManuGH/cue2ts/internal/log"
)

// Manager tracks the active profile and handles switching. The caller is
// responsible for stopping any generation loop bound to the outgoing profile
// before switching; Switch persists the outgoing allocator state so a later
// switch back restores the counter exactly.
type Manager struct {
	dataDir string

	mu     sync.Mutex
	active *Context
}

// NewManager returns a Manager rooted at dataDir with no active profile.
func NewManager(dataDir string) *Manager {
	return &Manager{dataDir: dataDir}
}

// Active returns the current profile context, or nil before the first Switch.
func (m *Manager) Active() *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Switch persists the outgoing profile's allocator state and resolves the
// named profile as the new active context. Switching to the already-active
// profile is a no-op.
func (m *Manager) Switch(name string) (*Context, error) {
	if name == "" {
		name = DefaultName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.Name == name {
		return m.active, nil
	}

	if m.active != nil {
		if err := m.active.Allocator.Persist(); err != nil {
			return nil, fmt.Errorf("persist outgoing profile %q: %w", m.active.Name, err)
		}
		logger := log.WithComponent("profile")
		logger.Info().
			Str(log.FieldOldState, m.active.Name).
			Str(log.FieldNewState, name).
			Msg("switching profile")
	}

	ctx, err := Resolve(m.dataDir, name)
	if err != nil {
		return nil, err
	}
	m.active = ctx
	return ctx, nil
}
