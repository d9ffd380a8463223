// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/cue2ts/internal/archive"
	"github.com/ManuGH/cue2ts/internal/config"
	"github.com/ManuGH/cue2ts/internal/engine"
	ctslog "github.com/ManuGH/cue2ts/internal/log"
	"github.com/ManuGH/cue2ts/internal/profile"
	"github.com/ManuGH/cue2ts/internal/supervisor"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Explicit --config wins; otherwise auto-load ${CUE2TS_DATA_DIR}/config.yaml.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(os.Getenv("CUE2TS_DATA_DIR"))
		if dataDir != "" {
			autoPath := filepath.Join(dataDir, "config.yaml")
			if _, err := os.Stat(autoPath); err == nil {
				effectiveConfigPath = autoPath
			}
		}
	}

	cfg, err := config.Load(effectiveConfigPath)
	if err != nil {
		logger := ctslog.WithComponent("daemon")
		logger.Fatal().
			Err(err).
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	ctslog.Configure(ctslog.Config{
		Level:   cfg.LogLevel,
		Service: "cue2ts",
	})
	logger := ctslog.WithComponent("daemon")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		logger.Fatal().Err(err).Str(ctslog.FieldPath, cfg.DataDir).Msg("create data directory")
	}

	store, err := archive.Open(filepath.Join(cfg.DataDir, "sessions.db"))
	if err != nil {
		logger.Fatal().Err(err).Msg("open session archive")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close session archive")
		}
	}()

	profiles := profile.NewManager(cfg.DataDir)
	sup := supervisor.New(cfg, engine.NewLauncher(), profiles, store)

	var ops *http.Server
	if cfg.ListenAddr != "" {
		ops = newOpsServer(cfg.ListenAddr, sup, store)
		go func() {
			logger.Info().Str("listen", cfg.ListenAddr).Msg("ops listener started")
			if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("ops listener failed")
			}
		}()
	}

	sess, err := sup.Start(ctx, cfg.ActiveProfile())
	if err != nil {
		logger.Fatal().Err(err).Str(ctslog.FieldProfile, cfg.ActiveProfile()).Msg("start session")
	}
	logger.Info().
		Str(ctslog.FieldSessionID, sess.ID()).
		Str(ctslog.FieldProfile, cfg.ActiveProfile()).
		Msg("daemon running")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	// Shutdown in LIFO order: session first, then the ops listener.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GraceTimeout+10*time.Second)
	defer cancel()

	if err := sup.Stop(shutdownCtx); err != nil && !errors.Is(err, supervisor.ErrNoSession) {
		logger.Error().Err(err).Msg("stop session")
	}
	if ops != nil {
		if err := ops.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("ops listener shutdown")
		}
	}
	logger.Info().Msg("shutdown complete")
}
