// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package profile resolves named configuration namespaces to isolated marker
// directories and allocator state files.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/cue2ts/internal/eventid"
	"github.com/ManuGH/cue2ts/internal/fsutil"
	"github.com/ManuGH/cue2ts/internal/log"
	"github.com/ManuGH/cue2ts/internal/marker"
)

// DefaultName is the implicit profile when none is configured.
const DefaultName = "default"

// ErrPathMismatch reports a resolved marker directory that does not contain
// the expected profile token. Writing there would leak state across profiles,
// so resolution fails before anything touches the directory.
var ErrPathMismatch = errors.New("resolved path does not contain profile token")

// Context is one profile's namespace: marker directory, allocator state file
// and the allocator itself. State is fully isolated between profiles.
type Context struct {
	Name      string
	MarkerDir string
	StatePath string
	Allocator *eventid.Allocator
}

// Resolve maps a profile name to its Context under dataDir, creating the
// marker directory if needed. The default profile lives at the data dir root;
// named profiles get a sanitized subdirectory.
func Resolve(dataDir, name string) (*Context, error) {
	if name == "" {
		name = DefaultName
	}
	logger := log.WithComponent("profile").With().
		Str(log.FieldProfile, name).Logger()

	var rel string
	token := DefaultName
	if name == DefaultName {
		rel = "markers"
	} else {
		token = slugify(name)
		rel = filepath.Join("profiles", token, "markers")
	}

	markerDir, err := fsutil.ConfineRelPath(dataDir, rel)
	if err != nil {
		return nil, fmt.Errorf("resolve profile %q: %w", name, err)
	}

	if name != DefaultName && !strings.Contains(markerDir, string(filepath.Separator)+token+string(filepath.Separator)) {
		logger.Error().Str(log.FieldMarkerDir, markerDir).Msg("profile token missing from resolved path")
		return nil, fmt.Errorf("%w: profile %q, path %s", ErrPathMismatch, name, markerDir)
	}

	if err := os.MkdirAll(markerDir, 0o750); err != nil {
		return nil, fmt.Errorf("create marker directory %s: %w", markerDir, err)
	}

	statePath := filepath.Join(filepath.Dir(markerDir), "state.json")
	if name == DefaultName {
		statePath = filepath.Join(dataDir, "state.json")
	}

	ctx := &Context{
		Name:      name,
		MarkerDir: markerDir,
		StatePath: statePath,
		Allocator: eventid.Load(statePath),
	}
	logger.Debug().
		Str(log.FieldMarkerDir, ctx.MarkerDir).
		Str(log.FieldStateFile, ctx.StatePath).
		Msg("profile resolved")
	return ctx, nil
}

// Glob returns the marker file pattern the engine polls in this profile.
func (c *Context) Glob() string {
	return filepath.Join(c.MarkerDir, marker.FilePattern)
}

// LiveFiles lists marker files currently present in the profile directory.
func (c *Context) LiveFiles() ([]string, error) {
	return filepath.Glob(c.Glob())
}
