// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldProfile   = "profile"
	FieldEventID   = "event_id"

	// Process / engine fields
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldAttempt   = "attempt"
	FieldExitCode  = "exit_code"

	// Marker fields
	FieldKind     = "kind"
	FieldTiming   = "timing"
	FieldInterval = "interval"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldStatus   = "status"

	// Path fields
	FieldPath      = "path"
	FieldMarkerDir = "marker_dir"
	FieldStateFile = "state_file"
)
