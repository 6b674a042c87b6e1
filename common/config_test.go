package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigMissingFileReturnsDefaults(t *testing.T) {
	config, err := GetConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
	assert.Equal(t, 30*time.Second, config.Gateway.CallTimeout())
	assert.Equal(t, 30*time.Minute, config.Session.IdleTimeout())
	assert.Equal(t, 0.8, config.Intelligence.AutoExecuteThreshold)
}

func TestGetConfigOverridesDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
gateway:
  call_timeout_seconds: 5
  max_reconnect_attempts: 2
storage:
  type: redis
  redis_address: localhost:6380
intelligence:
  suggest_threshold: 0.5
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	config, err := GetConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, config.Gateway.CallTimeout())
	assert.Equal(t, 2, config.Gateway.MaxReconnectAttempts)
	assert.Equal(t, "redis", config.Storage.Type)
	assert.Equal(t, "localhost:6380", config.Storage.RedisAddress)
	assert.Equal(t, 0.5, config.Intelligence.SuggestThreshold)
	// untouched defaults survive
	assert.Equal(t, 5, config.Intelligence.AnalysisIntervalMinutes)
}

func TestGetConfigRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  type: cassandra
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	_, err := GetConfig(configPath)
	assert.Error(t, err)

	content = `
intelligence:
  suggest_threshold: 0.9
  auto_execute_threshold: 0.7
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	_, err = GetConfig(configPath)
	assert.Error(t, err)
}
