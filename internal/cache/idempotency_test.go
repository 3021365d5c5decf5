package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCacheScopesByProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewIdempotencyCache(client, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "anthropic", "req-1", []byte(`{"text":"first"}`))
	c.Set(ctx, "anthropic", "req-1", []byte(`{"text":"second"}`))

	data, ok := c.Get(ctx, "anthropic", "req-1")
	require.True(t, ok)
	require.JSONEq(t, `{"text":"first"}`, string(data))

	_, ok = c.Get(ctx, "bedrock", "req-1")
	require.False(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "anthropic", "req-1")
	require.False(t, ok)
}

func TestIdempotencyCacheNilSafe(t *testing.T) {
	var c *IdempotencyCache
	c.Set(context.Background(), "anthropic", "k", []byte("x"))
	_, ok := c.Get(context.Background(), "anthropic", "k")
	require.False(t, ok)
}
