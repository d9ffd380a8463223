// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/ManuGH/cue2ts/internal/log"
	"github.com/rs/zerolog"
)

// ParseString reads a string from an environment variable or returns the
// default value. The source is logged for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		logger.Debug().
			Str("key", key).
			Str("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Str("value", value).
		Str("source", "environment").
		Msg("using environment variable")
	return value
}

// ParseInt reads an integer from an environment variable or returns the
// default. Invalid values are logged and fall back to the default.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", value).
			Int("default", defaultValue).
			Msg("invalid integer in environment, using default")
		return defaultValue
	}
	return parsed
}

// ParseBool reads a boolean from an environment variable or returns the
// default. Invalid values are logged and fall back to the default.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", value).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment, using default")
		return defaultValue
	}
	return parsed
}

// ParseDuration reads a duration from an environment variable or returns the
// default. Bare integers are interpreted as seconds.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	logger.Warn().
		Str("key", key).
		Str("value", value).
		Dur("default", defaultValue).
		Msg("invalid duration in environment, using default")
	return defaultValue
}

// applyEnv overlays CUE2TS_* environment variables on the given config.
func applyEnv(c Config) Config {
	c.Profile = ParseString("CUE2TS_PROFILE", c.Profile)
	c.DataDir = ParseString("CUE2TS_DATA_DIR", c.DataDir)
	c.EngineBin = ParseString("CUE2TS_ENGINE_BIN", c.EngineBin)
	c.Input = ParseString("CUE2TS_INPUT", c.Input)
	c.Output = ParseString("CUE2TS_OUTPUT", c.Output)
	c.InjectInterval = ParseDuration("CUE2TS_INJECT_INTERVAL", c.InjectInterval)
	c.StartDelay = ParseDuration("CUE2TS_START_DELAY", c.StartDelay)
	c.PollInterval = ParseDuration("CUE2TS_POLL_INTERVAL", c.PollInterval)
	c.MetricsInterval = ParseDuration("CUE2TS_METRICS_INTERVAL", c.MetricsInterval)
	c.MetricsJSON = ParseBool("CUE2TS_METRICS_JSON", c.MetricsJSON)
	c.BreakDuration = ParseDuration("CUE2TS_BREAK_DURATION", c.BreakDuration)
	c.AutoReturn = ParseBool("CUE2TS_AUTO_RETURN", c.AutoReturn)
	c.ConsumerDeletes = ParseBool("CUE2TS_CONSUMER_DELETES", c.ConsumerDeletes)
	c.RetryBudget = ParseInt("CUE2TS_RETRY_BUDGET", c.RetryBudget)
	c.RetryBackoff = ParseDuration("CUE2TS_RETRY_BACKOFF", c.RetryBackoff)
	c.GraceTimeout = ParseDuration("CUE2TS_GRACE_TIMEOUT", c.GraceTimeout)
	c.ListenAddr = ParseString("CUE2TS_LISTEN", c.ListenAddr)
	c.LogLevel = ParseString("CUE2TS_LOG_LEVEL", c.LogLevel)
	return c
}
