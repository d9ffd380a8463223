// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarkersGeneratedTotal counts splice descriptors produced, by kind.
	MarkersGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cue2ts_markers_generated_total",
		Help: "Total number of splice marker descriptors generated",
	}, []string{"kind"})

	// MarkerWriteFailuresTotal counts marker files that could not be written.
	MarkerWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cue2ts_marker_write_failures_total",
		Help: "Total number of failed marker file writes",
	})

	// MarkerFilesConsumedTotal counts marker files removed by the engine
	// (delete-by-consumer configurations).
	MarkerFilesConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cue2ts_marker_files_consumed_total",
		Help: "Total number of marker files observed as consumed by the engine",
	})

	// AllocatorResetsTotal counts event-id state resets after a corrupt or
	// missing state file.
	AllocatorResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cue2ts_allocator_resets_total",
		Help: "Total number of event-id allocator resets to the seed value",
	})
)

// IncMarkerGenerated records one generated descriptor of the given kind.
func IncMarkerGenerated(kind string) {
	MarkersGeneratedTotal.WithLabelValues(kind).Inc()
}

// IncMarkerWriteFailure records a failed marker file write.
func IncMarkerWriteFailure() {
	MarkerWriteFailuresTotal.Inc()
}

// IncMarkerConsumed records a marker file removal attributed to the engine.
func IncMarkerConsumed() {
	MarkerFilesConsumedTotal.Inc()
}

// IncAllocatorReset records an allocator reset to the seed value.
func IncAllocatorReset() {
	AllocatorResetsTotal.Inc()
}
