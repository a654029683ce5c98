package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/axmq/lwmqtt/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadClientConfigOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, "max_qos: 1\nkeepalive_seconds: 30\n")

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint8(1), cfg.MaxQoS)
	assert.Equal(t, uint16(30), cfg.KeepaliveSeconds)
	// Untouched fields keep their defaults.
	assert.Equal(t, uint32(65535), cfg.MaxPayloadSize)
}

func TestLoadClientConfigMissingFileErrors(t *testing.T) {
	_, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadClientConfigMalformedYAMLErrors(t *testing.T) {
	path := writeTempConfig(t, "max_qos: [this is not a scalar\n")
	_, err := LoadClientConfig(path)
	assert.Error(t, err)
}

func TestLoadBrokerConfigOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, "retained_store: pebble\npebble_dir: /var/lib/lwmqtt\nmetrics_enabled: true\n")

	cfg, err := LoadBrokerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, StorePebble, cfg.RetainedStore)
	assert.Equal(t, "/var/lib/lwmqtt", cfg.PebbleDir)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, ":1883", cfg.ListenAddr)
}

func TestDefaultBrokerConfigValues(t *testing.T) {
	cfg := DefaultBrokerConfig()
	assert.Equal(t, StoreMemory, cfg.RetainedStore)
	assert.Equal(t, uint8(2), cfg.MaxQoS)
	assert.False(t, cfg.MetricsEnabled)
}

func TestDefaultClientConfigLogLevel(t *testing.T) {
	cfg := DefaultClientConfig()
	assert.Equal(t, logger.LevelError, cfg.LogLevel)
}
