// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/ManuGH/cue2ts/internal/log"
	"github.com/ManuGH/cue2ts/internal/metrics"
)

// Handle is a running engine process.
type Handle interface {
	// Stdout is the engine's telemetry stream. It reaches EOF when the
	// process exits.
	Stdout() io.Reader

	// Wait yields the process exit result exactly once.
	Wait() <-chan error

	// Terminate sends SIGTERM to the process group, waits up to grace, then
	// SIGKILLs. It drains and returns the Wait result.
	Terminate(grace time.Duration) error

	// PID returns the process id.
	PID() int
}

// Launcher starts engine processes. The exec implementation is the production
// path; tests substitute a scripted fake.
type Launcher interface {
	Launch(ctx context.Context, inv Invocation) (Handle, error)
}

type execLauncher struct{}

// NewLauncher returns the os/exec-backed Launcher.
func NewLauncher() Launcher {
	return execLauncher{}
}

func (execLauncher) Launch(ctx context.Context, inv Invocation) (Handle, error) {
	logger := log.WithComponentFromContext(ctx, "engine")

	cmd := exec.Command(inv.Bin, inv.Args...) // #nosec G204 -- binary and args come from validated config
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout pipe: %w", err)
	}
	stderrLogger := logger.With().Str("stream", "stderr").Logger()
	cmd.Stderr = stderrLogger

	if err := cmd.Start(); err != nil {
		metrics.IncEngineStart("error")
		return nil, fmt.Errorf("launch engine %s: %w", inv.Bin, err)
	}
	metrics.IncEngineStart("ok")
	logger.Info().
		Int(log.FieldPID, cmd.Process.Pid).
		Strs("args", inv.Args).
		Msg("engine launched")

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
		close(waitCh)
	}()

	return &procHandle{cmd: cmd, stdout: stdout, waitCh: waitCh}, nil
}

type procHandle struct {
	cmd    *exec.Cmd
	stdout io.Reader
	waitCh chan error
}

func (h *procHandle) Stdout() io.Reader { return h.stdout }

func (h *procHandle) Wait() <-chan error { return h.waitCh }

func (h *procHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Terminate implements the SIGTERM -> grace -> SIGKILL -> drain lifecycle for
// the whole process group.
func (h *procHandle) Terminate(grace time.Duration) error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	if err := signalGroup(h.cmd, sigTerm); err == nil {
		metrics.IncProcTerminate("SIGTERM", "sent")
	} else if isGone(err) {
		metrics.IncProcTerminate("SIGTERM", "esrch")
	} else {
		metrics.IncProcTerminate("SIGTERM", "error")
	}

	select {
	case err := <-h.waitCh:
		return err
	case <-time.After(grace):
	}

	if err := signalGroup(h.cmd, sigKill); err == nil {
		metrics.IncProcTerminate("SIGKILL", "sent")
	} else if isGone(err) {
		metrics.IncProcTerminate("SIGKILL", "esrch")
	} else {
		metrics.IncProcTerminate("SIGKILL", "error")
	}

	// Always drain waitCh so the process is reaped.
	return <-h.waitCh
}
