package config

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/hwmond/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hwmond.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad(t *testing.T) {
	configPath := writeConfigFile(t, `
interval = 5
bridge_command = "pwsh"
bridge_args = ["-File", "sensors.ps1"]
listen_address = ":8088"
log_level = "debug"
telemetry = true
telemetry_db = "/path/to/telemetry.db"
rules_file = "/etc/hwmond/rules.yaml"
queue_size = 8
workers = 3
`)
	t.Setenv("HWMOND_CONFIG", configPath)

	cfg, err := load(nil)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Interval, "Expected Interval 5")
	assert.Equal(t, "pwsh", cfg.BridgeCommand, "Expected BridgeCommand pwsh")
	assert.Equal(t, []string{"-File", "sensors.ps1"}, cfg.BridgeArgs)
	assert.Equal(t, ":8088", cfg.ListenAddress, "Expected ListenAddress :8088")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.True(t, cfg.Telemetry, "Expected Telemetry true")
	assert.Equal(t, "/path/to/telemetry.db", cfg.TelemetryDB)
	assert.Equal(t, "/etc/hwmond/rules.yaml", cfg.RulesFile)
	assert.Equal(t, 8, cfg.QueueSize, "Expected QueueSize 8")
	assert.Equal(t, 3, cfg.Workers, "Expected Workers 3")
}

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file is used
	t.Setenv("HWMOND_CONFIG", "")

	cfg, err := load(nil)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, DefaultInterval, cfg.Interval, "Expected default Interval 2")
	assert.Equal(t, "powershell", cfg.BridgeCommand)
	assert.Equal(t, []string{"-ExecutionPolicy", "Bypass", "-File", "bridge.ps1"}, cfg.BridgeArgs)
	assert.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	assert.False(t, cfg.TUI, "Expected default TUI false")
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
	assert.False(t, cfg.Telemetry, "Expected default Telemetry false")
	assert.Equal(t, DefaultTelemetryDB, cfg.TelemetryDB)
	assert.Equal(t, DefaultQueueSize, cfg.QueueSize)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultFlushSeconds, cfg.FlushSeconds)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfigFile(t, `
This is not a valid TOML file
`)
	t.Setenv("HWMOND_CONFIG", configPath)

	_, err := load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrReadConfig, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "Failed to read configuration")
}

func TestInvalidLogLevel(t *testing.T) {
	configPath := writeConfigFile(t, `
log_level = "invalid"
`)
	t.Setenv("HWMOND_CONFIG", configPath)

	_, err := load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidLogLevel, errors.CodeOf(err))
}

func TestInvalidInterval(t *testing.T) {
	configPath := writeConfigFile(t, `
interval = 0
`)
	t.Setenv("HWMOND_CONFIG", configPath)

	_, err := load(nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidInterval, errors.CodeOf(err))
}

func TestFlagsOverrideFile(t *testing.T) {
	configPath := writeConfigFile(t, `
interval = 5
log_level = "error"
`)
	t.Setenv("HWMOND_CONFIG", configPath)

	cfg, err := load([]string{"--interval", "7", "--log-level", "debug"})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Interval, "Expected flag to override file")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected flag to override file")
}

func TestEnvOverridesFile(t *testing.T) {
	configPath := writeConfigFile(t, `
log_level = "error"
`)
	t.Setenv("HWMOND_CONFIG", configPath)
	t.Setenv("HWMOND_LOG_LEVEL", "warn")

	cfg, err := load(nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel, "Expected environment to override file")
}

func TestConfigFlag(t *testing.T) {
	configPath := writeConfigFile(t, `
interval = 9
`)

	cfg, err := load([]string{"--config", configPath})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Interval)
}
