package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupClientPrefersConfiguredAddress(t *testing.T) {
	t.Setenv("DAYFLOW_REDIS_ADDRESS", "envhost:6390")

	client := setupClient("confighost:6391")
	defer client.Close()
	assert.Equal(t, "confighost:6391", client.Options().Addr)
}

func TestSetupClientFallsBackToEnvThenDefault(t *testing.T) {
	t.Setenv("DAYFLOW_REDIS_ADDRESS", "envhost:6390")
	fromEnv := setupClient("")
	defer fromEnv.Close()
	assert.Equal(t, "envhost:6390", fromEnv.Options().Addr)

	t.Setenv("DAYFLOW_REDIS_ADDRESS", "")
	fromDefault := setupClient("")
	defer fromDefault.Close()
	assert.Equal(t, "localhost:6379", fromDefault.Options().Addr)
}

func TestNewStorageAndStreamerUseConfiguredAddress(t *testing.T) {
	t.Setenv("DAYFLOW_REDIS_ADDRESS", "")

	db := NewStorage("confighost:6391")
	defer db.Client.Close()
	assert.Equal(t, "confighost:6391", db.Client.Options().Addr)

	streamer := NewStreamer("confighost:6391")
	defer streamer.Client.Close()
	assert.Equal(t, "confighost:6391", streamer.Client.Options().Addr)
}
