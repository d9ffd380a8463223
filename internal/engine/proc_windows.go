// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build windows

package engine

import (
	"errors"
	"os"
	"os/exec"
	"strings"
)

// Windows has no POSIX signals or process groups. Termination degrades to
// killing the direct child process.
type processSignal int

const (
	sigTerm processSignal = iota
	sigKill
)

func setProcessGroup(_ *exec.Cmd) {}

func signalGroup(cmd *exec.Cmd, sig processSignal) error {
	if cmd.Process == nil {
		return nil
	}
	if sig == sigTerm {
		// Best effort: os.Interrupt is not implemented for Windows processes,
		// so both phases kill.
		return cmd.Process.Kill()
	}
	return cmd.Process.Kill()
}

func isGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrProcessDone) {
		return true
	}
	return strings.Contains(err.Error(), "process already finished")
}
