// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with string-typed durations so YAML values like
// "60s" or bare seconds are accepted.
type fileConfig struct {
	Profile         string `yaml:"profile"`
	DataDir         string `yaml:"data_dir"`
	EngineBin       string `yaml:"engine_bin"`
	Input           string `yaml:"input"`
	Output          string `yaml:"output"`
	InjectInterval  string `yaml:"inject_interval"`
	StartDelay      string `yaml:"start_delay"`
	PollInterval    string `yaml:"poll_interval"`
	MetricsInterval string `yaml:"metrics_interval"`
	MetricsJSON     *bool  `yaml:"metrics_json"`
	BreakDuration   string `yaml:"break_duration"`
	AutoReturn      *bool  `yaml:"auto_return"`
	ConsumerDeletes *bool  `yaml:"consumer_deletes"`
	RetryBudget     *int   `yaml:"retry_budget"`
	RetryBackoff    string `yaml:"retry_backoff"`
	GraceTimeout    string `yaml:"grace_timeout"`
	ListenAddr      string `yaml:"listen_addr"`
	LogLevel        string `yaml:"log_level"`
}

// Load builds the effective configuration: defaults, then the optional YAML
// file at path (empty path skips the file), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		cfg, err = mergeFile(cfg, fc)
		if err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg = applyEnv(cfg)
	return cfg, nil
}

func mergeFile(c Config, fc fileConfig) (Config, error) {
	if fc.Profile != "" {
		c.Profile = fc.Profile
	}
	if fc.DataDir != "" {
		c.DataDir = fc.DataDir
	}
	if fc.EngineBin != "" {
		c.EngineBin = fc.EngineBin
	}
	if fc.Input != "" {
		c.Input = fc.Input
	}
	if fc.Output != "" {
		c.Output = fc.Output
	}
	if fc.MetricsJSON != nil {
		c.MetricsJSON = *fc.MetricsJSON
	}
	if fc.AutoReturn != nil {
		c.AutoReturn = *fc.AutoReturn
	}
	if fc.ConsumerDeletes != nil {
		c.ConsumerDeletes = *fc.ConsumerDeletes
	}
	if fc.RetryBudget != nil {
		c.RetryBudget = *fc.RetryBudget
	}
	if fc.ListenAddr != "" {
		c.ListenAddr = fc.ListenAddr
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}

	durs := []struct {
		raw string
		key string
		dst *time.Duration
	}{
		{fc.InjectInterval, "inject_interval", &c.InjectInterval},
		{fc.StartDelay, "start_delay", &c.StartDelay},
		{fc.PollInterval, "poll_interval", &c.PollInterval},
		{fc.MetricsInterval, "metrics_interval", &c.MetricsInterval},
		{fc.BreakDuration, "break_duration", &c.BreakDuration},
		{fc.RetryBackoff, "retry_backoff", &c.RetryBackoff},
		{fc.GraceTimeout, "grace_timeout", &c.GraceTimeout},
	}
	for _, d := range durs {
		if d.raw == "" {
			continue
		}
		v, err := parseFileDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}
	return c, nil
}

// parseFileDuration accepts Go duration syntax and bare integers as seconds.
func parseFileDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}
