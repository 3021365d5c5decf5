package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/model_router/internal/models"
)

// Store shares fetched records between router instances.
type Store interface {
	Load(ctx context.Context, provider string) (models.ModelRecord, bool, error)
	Save(ctx context.Context, provider string, record models.ModelRecord, ttl time.Duration) error
	Delete(ctx context.Context, provider string) error
}

// RedisStore keeps JSON encoded records under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "catalog:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Load(ctx context.Context, provider string) (models.ModelRecord, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, nil
	}
	data, err := s.client.Get(ctx, s.key(provider)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var record models.ModelRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("decode stored record: %w", err)
	}
	return record, true, nil
}

func (s *RedisStore) Save(ctx context.Context, provider string, record models.ModelRecord, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.client.Set(ctx, s.key(provider), data, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, provider string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.key(provider)).Err()
}

func (s *RedisStore) key(provider string) string {
	return s.prefix + provider
}
