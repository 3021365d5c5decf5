package redisclient

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_router/internal/config"
)

func TestNewAndPing(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := New(config.RedisConfig{URL: "redis://" + server.Addr(), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, Ping(context.Background(), client))

	bare, err := New(config.RedisConfig{URL: server.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bare.Close() })
	require.NoError(t, Ping(context.Background(), bare))
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(config.RedisConfig{})
	require.Error(t, err)
}
