// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/cue2ts/internal/archive"
	ctslog "github.com/ManuGH/cue2ts/internal/log"
	"github.com/ManuGH/cue2ts/internal/supervisor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// newOpsServer exposes the read-only operational surface: health, metrics and
// the current session snapshot.
func newOpsServer(addr string, sup *supervisor.Supervisor, store *archive.Store) *http.Server {
	logger := ctslog.WithComponent("ops")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/api/v1/session", func(w http.ResponseWriter, _ *http.Request) {
		snap, ok := sup.Snapshot()
		if !ok {
			http.Error(w, "no session", http.StatusNotFound)
			return
		}
		writeJSON(w, logger, snap)
	})

	r.Get("/api/v1/sessions", func(w http.ResponseWriter, req *http.Request) {
		limit := 20
		if v := req.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		recent, err := store.Recent(req.Context(), limit)
		if err != nil {
			logger.Error().Err(err).Msg("list archived sessions")
			http.Error(w, "archive unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, recent)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug().Err(err).Msg("encode response")
	}
}
