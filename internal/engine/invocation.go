// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package engine launches and terminates the external stream-processing
// engine. The engine is opaque: it is reached through a flat argument list,
// a marker-file drop directory and its line-oriented stdout.
package engine

import (
	"strconv"
	"time"
)

// Spec describes one engine invocation.
type Spec struct {
	// Input and Output are the transport stream locators.
	Input  string
	Output string

	// MarkerGlob is the profile's splice-file source pattern.
	MarkerGlob string

	// PollInterval is the engine's marker directory poll cycle.
	PollInterval time.Duration

	// InjectPID is the PID the splice tables are injected on.
	InjectPID int

	// MetricsInterval drives the periodic analysis sub-plugin.
	MetricsInterval time.Duration

	// MetricsJSON selects JSON-line analysis output over free text.
	MetricsJSON bool

	// ConsumerDeletes lets the engine remove files after injection. Must be
	// false while the generation loop performs its own cleanup: both deleting
	// risks the engine removing a marker before its injection time.
	ConsumerDeletes bool
}

// Invocation is a resolved binary plus flat argument list.
type Invocation struct {
	Bin  string
	Args []string
}

// DefaultInjectPID is used when the Spec leaves the injection PID unset.
const DefaultInjectPID = 500

// BuildInvocation renders a Spec into the engine's plugin-chain argument
// list: input, splice injection from the marker glob, periodic analysis on
// stdout, output.
func BuildInvocation(bin string, s Spec) Invocation {
	pid := s.InjectPID
	if pid == 0 {
		pid = DefaultInjectPID
	}

	args := []string{
		"-I", "ip", s.Input,
		"-P", "spliceinject",
		"--files", s.MarkerGlob,
		"--poll-interval", strconv.FormatInt(s.PollInterval.Milliseconds(), 10),
		"--pid", strconv.Itoa(pid),
	}
	if s.ConsumerDeletes {
		args = append(args, "--delete-files")
	}
	args = append(args,
		"-P", "analyze",
		"--interval", strconv.FormatInt(int64(s.MetricsInterval.Seconds()), 10),
	)
	if s.MetricsJSON {
		args = append(args, "--json-line")
	}
	args = append(args, "-O", "ip", s.Output)

	return Invocation{Bin: bin, Args: args}
}
