package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ncecere/model_router/internal/models"
)

// DefaultTTL bounds how long a fetched record is served before refetching.
const DefaultTTL = 5 * time.Minute

var ErrUnknownProvider = errors.New("catalog: no fetcher registered for provider")

// Fetcher retrieves the full model listing of one provider.
type Fetcher interface {
	Fetch(ctx context.Context) (models.ModelRecord, error)
}

type FetcherFunc func(ctx context.Context) (models.ModelRecord, error)

func (f FetcherFunc) Fetch(ctx context.Context) (models.ModelRecord, error) {
	return f(ctx)
}

// StaticFetcher serves a fixed table.
func StaticFetcher(record models.ModelRecord) Fetcher {
	return FetcherFunc(func(context.Context) (models.ModelRecord, error) {
		return record.Clone(), nil
	})
}

// Observer receives one call per catalog load. outcome is "fetch", "store"
// or "error".
type Observer interface {
	RecordCatalogFetch(provider, outcome string, elapsed time.Duration)
}

type Options struct {
	// TTL of zero refetches on every lookup.
	TTL      time.Duration
	Store    Store
	Logger   *slog.Logger
	Observer Observer
}

type entry struct {
	record    models.ModelRecord
	fetchedAt time.Time
}

// Cache keeps the last good model record per provider. Lookups never fail:
// on fetch errors the stale record (or an empty one) is served.
type Cache struct {
	ttl      time.Duration
	store    Store
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	fetchers map[string]Fetcher
	entries  map[string]entry
}

func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		ttl:      ttl,
		store:    opts.Store,
		logger:   logger,
		observer: opts.Observer,
		now:      time.Now,
		fetchers: make(map[string]Fetcher),
		entries:  make(map[string]entry),
	}
}

// Register installs the fetcher for provider, replacing any previous one and
// dropping its cached record.
func (c *Cache) Register(provider string, fetcher Fetcher) {
	provider = NormalizeProviderSlug(provider)
	c.mu.Lock()
	c.fetchers[provider] = fetcher
	delete(c.entries, provider)
	c.mu.Unlock()
}

func (c *Cache) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.fetchers))
	for name := range c.fetchers {
		out = append(out, name)
	}
	return out
}

// GetModels returns the model record for provider.
func (c *Cache) GetModels(ctx context.Context, provider string) models.ModelRecord {
	provider = NormalizeProviderSlug(provider)
	if record, ok := c.fresh(provider); ok {
		return record.Clone()
	}

	record, err := c.load(ctx, provider, true)
	if err != nil {
		stale, hasStale := c.cached(provider)
		c.logger.Warn("model catalog fetch failed",
			slog.String("provider", provider),
			slog.Bool("serving_stale", hasStale),
			slog.String("error", err.Error()),
		)
		if hasStale {
			return stale.Clone()
		}
		return models.ModelRecord{}
	}
	return record.Clone()
}

// Refresh fetches from the provider, bypassing the TTL and shared store, and
// reports fetch failures.
func (c *Cache) Refresh(ctx context.Context, provider string) (models.ModelRecord, error) {
	provider = NormalizeProviderSlug(provider)
	record, err := c.load(ctx, provider, false)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// Invalidate drops the cached record so the next lookup refetches.
func (c *Cache) Invalidate(provider string) {
	provider = NormalizeProviderSlug(provider)
	c.mu.Lock()
	delete(c.entries, provider)
	c.mu.Unlock()
	if c.store != nil {
		if err := c.store.Delete(context.Background(), provider); err != nil {
			c.logger.Warn("model catalog store delete failed", slog.String("provider", provider), slog.String("error", err.Error()))
		}
	}
}

func (c *Cache) fresh(provider string) (models.ModelRecord, bool) {
	if c.ttl == 0 {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.entries[provider]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.record, true
}

func (c *Cache) cached(provider string) (models.ModelRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[provider]
	return e.record, ok
}

func (c *Cache) load(ctx context.Context, provider string, useStore bool) (models.ModelRecord, error) {
	key := provider
	if !useStore {
		key = "refresh:" + provider
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		start := c.now()
		if useStore && c.store != nil && c.ttl > 0 {
			record, ok, err := c.store.Load(ctx, provider)
			if err != nil {
				c.logger.Warn("model catalog store load failed", slog.String("provider", provider), slog.String("error", err.Error()))
			} else if ok {
				c.set(provider, record)
				c.observe(provider, "store", start)
				return record, nil
			}
		}

		c.mu.RLock()
		fetcher, ok := c.fetchers[provider]
		c.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
		}

		record, err := fetcher.Fetch(ctx)
		if err != nil {
			c.observe(provider, "error", start)
			return nil, fmt.Errorf("fetch %s models: %w", provider, err)
		}
		if record == nil {
			record = models.ModelRecord{}
		}
		c.set(provider, record)
		c.observe(provider, "fetch", start)

		if c.store != nil && c.ttl > 0 {
			if err := c.store.Save(ctx, provider, record, c.ttl); err != nil {
				c.logger.Warn("model catalog store save failed", slog.String("provider", provider), slog.String("error", err.Error()))
			}
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(models.ModelRecord), nil
}

func (c *Cache) set(provider string, record models.ModelRecord) {
	c.mu.Lock()
	c.entries[provider] = entry{record: record, fetchedAt: c.now()}
	c.mu.Unlock()
}

func (c *Cache) observe(provider, outcome string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.RecordCatalogFetch(provider, outcome, c.now().Sub(start))
}
