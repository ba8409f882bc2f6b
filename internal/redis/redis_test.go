package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pu-ac-cn/club-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	mr := miniredis.RunT(t)

	err := Init(&config.RedisConfig{Enabled: true, Addr: mr.Addr()})
	require.NoError(t, err)
	defer Close()

	assert.True(t, Enabled())
	require.NotNil(t, GetClient())
	assert.NoError(t, Ping(context.Background()))

	// 客户端可直接读写
	require.NoError(t, GetClient().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestInit_Disabled(t *testing.T) {
	require.NoError(t, Init(&config.RedisConfig{Enabled: false, Addr: "127.0.0.1:1"}))

	assert.False(t, Enabled())
	assert.Nil(t, GetClient())
	assert.ErrorIs(t, Ping(context.Background()), ErrNotInitialized)
	assert.NoError(t, Close())
}

func TestInit_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	err := Init(&config.RedisConfig{Enabled: true, Addr: addr})
	assert.Error(t, err)
	assert.False(t, Enabled())
}

func TestPing_AfterServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, Init(&config.RedisConfig{Enabled: true, Addr: mr.Addr()}))
	defer Close()

	mr.Close()
	assert.Error(t, Ping(context.Background()))
}

func TestClose(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, Init(&config.RedisConfig{Enabled: true, Addr: mr.Addr()}))

	assert.NoError(t, Close())
	assert.Nil(t, GetClient())
	assert.NoError(t, Close())
}
