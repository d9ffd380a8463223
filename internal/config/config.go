// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config resolves the daemon configuration from defaults, an optional
// YAML file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/cue2ts/internal/log"
)

const (
	// MinRecommendedInterval is the lower bound of the recommended marker
	// regeneration interval. Configurations below it are accepted with a warning.
	MinRecommendedInterval = 30 * time.Second

	// MaxRecommendedInterval is the upper bound of the recommended interval.
	MaxRecommendedInterval = 300 * time.Second

	// DefaultInterval is used when no regeneration interval is configured.
	DefaultInterval = 60 * time.Second
)

// SessionConfig is the subset of the configuration handed to a stream session.
type SessionConfig struct {
	InputLocator   string
	OutputLocator  string
	InjectInterval time.Duration
	StartDelay     time.Duration
}

// Config is the full daemon configuration.
type Config struct {
	// Profile is the active profile namespace ("default" if empty).
	Profile string `yaml:"profile"`

	// DataDir is the root for per-profile marker directories and state files.
	DataDir string `yaml:"data_dir"`

	// EngineBin is the external stream-processing engine binary.
	EngineBin string `yaml:"engine_bin"`

	// Input and Output are the engine's transport stream locators.
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	// InjectInterval is the marker regeneration interval.
	InjectInterval time.Duration `yaml:"inject_interval"`

	// StartDelay postpones the first engine launch after session start.
	StartDelay time.Duration `yaml:"start_delay"`

	// PollInterval is how often the engine polls the marker directory.
	PollInterval time.Duration `yaml:"poll_interval"`

	// MetricsInterval drives the engine's periodic analysis reports.
	MetricsInterval time.Duration `yaml:"metrics_interval"`

	// MetricsJSON requests structured (JSON line) analysis reports.
	MetricsJSON bool `yaml:"metrics_json"`

	// BreakDuration is the default ad-break duration for generated markers.
	BreakDuration time.Duration `yaml:"break_duration"`

	// AutoReturn marks generated cue-out markers as auto-returning.
	AutoReturn bool `yaml:"auto_return"`

	// ConsumerDeletes lets the engine remove marker files after injection.
	// Mutually exclusive with the dynamic generation loop's own cleanup.
	ConsumerDeletes bool `yaml:"consumer_deletes"`

	// RetryBudget bounds relaunch attempts after an engine crash.
	RetryBudget int `yaml:"retry_budget"`

	// RetryBackoff is the initial relaunch backoff interval.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// GraceTimeout bounds the SIGTERM-to-SIGKILL window on shutdown.
	GraceTimeout time.Duration `yaml:"grace_timeout"`

	// ListenAddr enables the operational HTTP listener when non-empty.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel overrides the global log level when non-empty.
	LogLevel string `yaml:"log_level"`
}

// Default returns the baseline configuration before file and env merging.
func Default() Config {
	return Config{
		Profile:         "default",
		DataDir:         "/var/lib/cue2ts",
		EngineBin:       "tsp",
		InjectInterval:  DefaultInterval,
		PollInterval:    500 * time.Millisecond,
		MetricsInterval: 10 * time.Second,
		MetricsJSON:     true,
		BreakDuration:   30 * time.Second,
		AutoReturn:      true,
		RetryBudget:     3,
		RetryBackoff:    2 * time.Second,
		GraceTimeout:    5 * time.Second,
		ListenAddr:      ":8089",
	}
}

// ActiveProfile returns the configured profile namespace.
func (c Config) ActiveProfile() string {
	if c.Profile == "" {
		return "default"
	}
	return c.Profile
}

// SessionConfig returns the session-facing subset of the configuration.
func (c Config) SessionConfig() SessionConfig {
	return SessionConfig{
		InputLocator:   c.Input,
		OutputLocator:  c.Output,
		InjectInterval: c.InjectInterval,
		StartDelay:     c.StartDelay,
	}
}

// Validate checks hard requirements and logs soft warnings.
func (c *Config) Validate() error {
	logger := log.WithComponent("config")

	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.EngineBin == "" {
		errs = append(errs, errors.New("engine_bin must not be empty"))
	}
	if c.Input == "" {
		errs = append(errs, errors.New("input locator must not be empty"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output locator must not be empty"))
	}
	if c.InjectInterval <= 0 {
		c.InjectInterval = DefaultInterval
	}
	if c.RetryBudget < 0 {
		errs = append(errs, fmt.Errorf("retry_budget must not be negative: %d", c.RetryBudget))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive: %s", c.PollInterval))
	}

	if c.InjectInterval < MinRecommendedInterval {
		logger.Warn().
			Dur(log.FieldInterval, c.InjectInterval).
			Dur("recommended_min", MinRecommendedInterval).
			Msg("inject interval below recommended minimum")
	} else if c.InjectInterval > MaxRecommendedInterval {
		logger.Warn().
			Dur(log.FieldInterval, c.InjectInterval).
			Dur("recommended_max", MaxRecommendedInterval).
			Msg("inject interval above recommended maximum")
	}

	return errors.Join(errs...)
}
