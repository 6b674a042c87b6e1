package redis

import (
	"context"
	"testing"

	"github.com/kelindar/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConnection(t *testing.T) {
	db := newTestRedisStorage()
	assert.NoError(t, db.CheckConnection(context.Background()))
}

func TestMGetMSet(t *testing.T) {
	ctx := context.Background()
	db := newTestRedisStorage()
	userId := "test-user"

	err := db.MSet(ctx, userId, map[string]interface{}{
		"pref:morning": "focus",
		"pref:evening": "review",
	})
	require.NoError(t, err)

	results, err := db.MGet(ctx, userId, []string{"pref:morning", "missing-key", "pref:evening"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	var morning, evening string
	require.NoError(t, binary.Unmarshal(results[0], &morning))
	assert.Nil(t, results[1], "missing keys should map to nil")
	require.NoError(t, binary.Unmarshal(results[2], &evening))
	assert.Equal(t, "focus", morning)
	assert.Equal(t, "review", evening)
}

func TestMGetIsUserScoped(t *testing.T) {
	ctx := context.Background()
	db := newTestRedisStorage()

	err := db.MSet(ctx, "user1", map[string]interface{}{"key": "value"})
	require.NoError(t, err)

	results, err := db.MGet(ctx, "user2", []string{"key"})
	require.NoError(t, err)
	assert.Nil(t, results[0])
}
