package database

import (
	"context"
	"testing"

	"ethoscore/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err := ConnectRedis(context.Background(), config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	c, err := ConnectRedis(context.Background(), config.RedisConfig{Address: addr})
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "redis ping failed")
}

func TestConnectRedis_NoAddress(t *testing.T) {
	_, err := ConnectRedis(context.Background(), config.RedisConfig{})
	assert.Error(t, err)
}

func TestRedisClient_CloseNil(t *testing.T) {
	var c *RedisClient
	assert.NoError(t, c.Close())
}
