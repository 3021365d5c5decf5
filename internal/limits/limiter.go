package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/model_router/internal/config"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

const keyPrefix = "router:limits:"

type LimitConfig struct {
	RequestsPerMinute int
	TokensPerMinute   int
	ParallelRequests  int
}

func FromConfig(cfg config.RateLimitConfig) LimitConfig {
	return LimitConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		TokensPerMinute:   cfg.TokensPerMinute,
		ParallelRequests:  cfg.ParallelRequests,
	}
}

// RateLimiter enforces per-key limits in Redis so replicas share one budget.
// A nil limiter, or one without a client, allows everything.
type RateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Acquire checks the request limits and takes a parallel slot. The returned
// release func is never nil.
func (l *RateLimiter) Acquire(ctx context.Context, key string, cfg LimitConfig) (func(), error) {
	if err := l.Allow(ctx, key, cfg); err != nil {
		return func() {}, err
	}
	return func() { l.Release(context.WithoutCancel(ctx), key, cfg) }, nil
}

func (l *RateLimiter) Allow(ctx context.Context, key string, cfg LimitConfig) error {
	if l == nil || l.client == nil {
		return nil
	}
	if cfg.RequestsPerMinute > 0 {
		if err := l.countCheck(ctx, keyPrefix+"rpm:"+key, time.Minute, cfg.RequestsPerMinute); err != nil {
			return err
		}
	}
	if cfg.ParallelRequests > 0 {
		if err := l.semaphoreAcquire(ctx, keyPrefix+"sem:"+key, cfg.ParallelRequests); err != nil {
			return err
		}
	}
	return nil
}

func (l *RateLimiter) Release(ctx context.Context, key string, cfg LimitConfig) {
	if l == nil || l.client == nil {
		return
	}
	if cfg.ParallelRequests > 0 {
		l.client.Decr(ctx, keyPrefix+"sem:"+key)
	}
}

func (l *RateLimiter) countCheck(ctx context.Context, key string, ttl time.Duration, limit int) error {
	window := l.now().UTC().Unix() / int64(ttl.Seconds())
	redisKey := fmt.Sprintf("%s:%d", key, window)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, ttl)
	}
	if int(cnt) > limit {
		return ErrLimitExceeded
	}
	return nil
}

func (l *RateLimiter) semaphoreAcquire(ctx context.Context, key string, max int) error {
	cnt, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, key, 5*time.Minute)
	}
	if int(cnt) > max {
		l.client.Decr(ctx, key)
		return ErrLimitExceeded
	}
	return nil
}

// TokenAllowance charges tokens to the current minute. A charge that would
// exceed the budget is rolled back.
func (l *RateLimiter) TokenAllowance(ctx context.Context, key string, tokens int, cfg LimitConfig) error {
	if l == nil || l.client == nil || cfg.TokensPerMinute <= 0 || tokens <= 0 {
		return nil
	}
	redisKey := l.tokenKey(key)

	used, err := l.client.IncrBy(ctx, redisKey, int64(tokens)).Result()
	if err != nil {
		return err
	}
	if used == int64(tokens) {
		l.client.Expire(ctx, redisKey, time.Minute)
	}
	if int(used) > cfg.TokensPerMinute {
		l.client.IncrBy(ctx, redisKey, -int64(tokens))
		return ErrLimitExceeded
	}
	return nil
}

// TokensExhausted reports whether the current minute's budget is used up.
func (l *RateLimiter) TokensExhausted(ctx context.Context, key string, cfg LimitConfig) (bool, error) {
	if l == nil || l.client == nil || cfg.TokensPerMinute <= 0 {
		return false, nil
	}
	used, err := l.client.Get(ctx, l.tokenKey(key)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return used >= cfg.TokensPerMinute, nil
}

func (l *RateLimiter) tokenKey(key string) string {
	return fmt.Sprintf("%stpm:%s:%d", keyPrefix, key, l.now().UTC().Unix()/60)
}
