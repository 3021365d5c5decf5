package cache

import (
	context "context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "router:idem:"

// IdempotencyCache stores serialized completion responses keyed by provider
// and client supplied idempotency key.
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyCache(client *redis.Client, ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &IdempotencyCache{client: client, ttl: ttl}
}

func (c *IdempotencyCache) Get(ctx context.Context, provider, key string) ([]byte, bool) {
	if c == nil || c.client == nil || key == "" {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.prefixed(provider, key)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores value unless an entry already exists, so the first response wins.
func (c *IdempotencyCache) Set(ctx context.Context, provider, key string, value []byte) {
	if c == nil || c.client == nil || key == "" || len(value) == 0 {
		return
	}
	c.client.SetNX(ctx, c.prefixed(provider, key), value, c.ttl)
}

func (c *IdempotencyCache) prefixed(provider, key string) string {
	return keyPrefix + provider + ":" + key
}
