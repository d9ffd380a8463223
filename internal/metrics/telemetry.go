// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TelemetryLinesTotal tracks parsed engine stdout lines by result.
	TelemetryLinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cue2ts_telemetry_lines_total",
		Help: "Total number of engine telemetry lines by parse result",
	}, []string{"result"})

	// MarkersInjectedTotal counts injection confirmations reported by the engine.
	MarkersInjectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cue2ts_markers_injected_total",
		Help: "Total number of marker injections confirmed via engine telemetry",
	})
)

// IncTelemetryLine records one stdout line with the given parse result
// ("event", "stats", "ignored" or "malformed").
func IncTelemetryLine(result string) {
	TelemetryLinesTotal.WithLabelValues(result).Inc()
}

// IncMarkerInjected records a confirmed injection.
func IncMarkerInjected() {
	MarkersInjectedTotal.Inc()
}
