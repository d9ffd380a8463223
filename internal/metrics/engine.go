// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EngineStartTotal tracks engine process start attempts by result.
	EngineStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cue2ts_engine_start_total",
		Help: "Total number of engine process starts",
	}, []string{"result"})

	// EngineExitTotal tracks engine process exits by reason.
	EngineExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cue2ts_engine_exit_total",
		Help: "Total number of engine process exits",
	}, []string{"reason"})

	// EngineRestartsTotal counts supervised relaunches after a crash.
	EngineRestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cue2ts_engine_restarts_total",
		Help: "Total number of engine relaunches after unexpected exit",
	})

	// ProcTerminateTotal tracks termination signals sent to the engine group.
	ProcTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cue2ts_proc_terminate_total",
		Help: "Total number of termination signals sent to the engine process group",
	}, []string{"signal", "result"})
)

// IncEngineStart records an engine start attempt outcome.
func IncEngineStart(result string) {
	EngineStartTotal.WithLabelValues(result).Inc()
}

// IncEngineExit records an engine exit with the given reason.
func IncEngineExit(reason string) {
	EngineExitTotal.WithLabelValues(reason).Inc()
}

// IncEngineRestart records a supervised relaunch.
func IncEngineRestart() {
	EngineRestartsTotal.Inc()
}

// IncProcTerminate records a termination signal outcome.
func IncProcTerminate(signal, result string) {
	ProcTerminateTotal.WithLabelValues(signal, result).Inc()
}
