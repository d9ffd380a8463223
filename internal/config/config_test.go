// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.DataDir = "/tmp/cue2ts-test"
	cfg.Input = "udp://239.1.1.1:5000"
	cfg.Output = "udp://239.1.1.2:5000"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingLocators(t *testing.T) {
	cfg := validConfig()
	cfg.Input = ""
	cfg.Output = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input locator")
	assert.Contains(t, err.Error(), "output locator")
}

func TestValidateRejectsNegativeRetryBudget(t *testing.T) {
	cfg := validConfig()
	cfg.RetryBudget = -1
	require.Error(t, cfg.Validate())
}

func TestValidateDefaultsNonPositiveInterval(t *testing.T) {
	cfg := validConfig()
	cfg.InjectInterval = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultInterval, cfg.InjectInterval)
}

func TestValidateToleratesOutOfRangeInterval(t *testing.T) {
	// Below and above the recommended band only warns.
	for _, iv := range []time.Duration{5 * time.Second, 20 * time.Minute} {
		cfg := validConfig()
		cfg.InjectInterval = iv
		require.NoError(t, cfg.Validate())
		assert.Equal(t, iv, cfg.InjectInterval)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profile: sport-hd
engine_bin: /opt/tsduck/bin/tsp
input: udp://239.1.1.1:5000
output: udp://239.1.1.2:5000
inject_interval: 45s
break_duration: 120
auto_return: false
consumer_deletes: true
retry_budget: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sport-hd", cfg.Profile)
	assert.Equal(t, "/opt/tsduck/bin/tsp", cfg.EngineBin)
	assert.Equal(t, 45*time.Second, cfg.InjectInterval)
	// Bare integers in the file are seconds.
	assert.Equal(t, 120*time.Second, cfg.BreakDuration)
	assert.False(t, cfg.AutoReturn)
	assert.True(t, cfg.ConsumerDeletes)
	assert.Equal(t, 5, cfg.RetryBudget)
	// Untouched keys keep their defaults.
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, ":8089", cfg.ListenAddr)
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("no_such_key: 1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadFileDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inject_interval: soon\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inject_interval")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profile: from-file\ninject_interval: 45s\n"), 0o600))

	t.Setenv("CUE2TS_PROFILE", "from-env")
	t.Setenv("CUE2TS_INJECT_INTERVAL", "90")
	t.Setenv("CUE2TS_CONSUMER_DELETES", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Profile)
	assert.Equal(t, 90*time.Second, cfg.InjectInterval)
	assert.True(t, cfg.ConsumerDeletes)
}

func TestParseDuration(t *testing.T) {
	t.Setenv("CUE2TS_TEST_DUR", "150ms")
	assert.Equal(t, 150*time.Millisecond, ParseDuration("CUE2TS_TEST_DUR", time.Second))

	t.Setenv("CUE2TS_TEST_DUR", "30")
	assert.Equal(t, 30*time.Second, ParseDuration("CUE2TS_TEST_DUR", time.Second))

	t.Setenv("CUE2TS_TEST_DUR", "whenever")
	assert.Equal(t, time.Second, ParseDuration("CUE2TS_TEST_DUR", time.Second))
}

func TestParseBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("CUE2TS_TEST_BOOL", "yes-please")
	assert.True(t, ParseBool("CUE2TS_TEST_BOOL", true))

	t.Setenv("CUE2TS_TEST_BOOL", "false")
	assert.False(t, ParseBool("CUE2TS_TEST_BOOL", true))
}

func TestSessionConfigSubset(t *testing.T) {
	cfg := validConfig()
	cfg.StartDelay = 3 * time.Second

	sc := cfg.SessionConfig()
	assert.Equal(t, cfg.Input, sc.InputLocator)
	assert.Equal(t, cfg.Output, sc.OutputLocator)
	assert.Equal(t, cfg.InjectInterval, sc.InjectInterval)
	assert.Equal(t, 3*time.Second, sc.StartDelay)
}
