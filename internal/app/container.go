package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/model_router/internal/cache"
	"github.com/ncecere/model_router/internal/catalog"
	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/executor"
	"github.com/ncecere/model_router/internal/health"
	"github.com/ncecere/model_router/internal/limits"
	"github.com/ncecere/model_router/internal/observability"
	"github.com/ncecere/model_router/internal/providers"
	"github.com/ncecere/model_router/internal/router"
)

// Container aggregates runtime dependencies for handlers and commands.
type Container struct {
	Config        *config.Config
	Redis         *redis.Client
	Catalog       *catalog.Cache
	Factory       *providers.Factory
	Engine        *router.Engine
	Executor      *executor.Executor
	RateLimiter   *limits.RateLimiter
	HealthMon     *health.Monitor
	Idempotency   *cache.IdempotencyCache
	Observability *observability.Provider
	Logger        *slog.Logger
}

// Options carries optional primitives; nil values fall back to defaults.
type Options struct {
	Redis         *redis.Client
	Logger        *slog.Logger
	Observability *observability.Provider
}

// NewContainer builds a dependency container and the initial provider routes.
// Providers that fail to build are logged and skipped so one bad key does not
// take the others down.
func NewContainer(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Catalog.Store == "redis" && opts.Redis == nil {
		return nil, fmt.Errorf("catalog.store=redis requires a redis client")
	}

	catalogOpts := catalog.Options{TTL: cfg.Catalog.TTL, Logger: logger}
	if cfg.Catalog.Store == "redis" {
		catalogOpts.Store = catalog.NewRedisStore(opts.Redis, "")
	}
	var recorder providers.Recorder
	if opts.Observability != nil {
		catalogOpts.Observer = opts.Observability
		recorder = opts.Observability
	}
	catalogCache := catalog.New(catalogOpts)

	factory := providers.NewFactory(providers.FactoryOptions{
		Config:   cfg,
		Catalog:  catalogCache,
		Logger:   logger,
		Recorder: recorder,
	})
	engine := router.NewEngine(cfg.Routing)

	var limiter *limits.RateLimiter
	if cfg.RateLimits.Enabled {
		if opts.Redis == nil {
			return nil, fmt.Errorf("rate_limits.enabled requires a redis client")
		}
		limiter = limits.NewRateLimiter(opts.Redis)
	}

	container := &Container{
		Config:        cfg,
		Redis:         opts.Redis,
		Catalog:       catalogCache,
		Factory:       factory,
		Engine:        engine,
		RateLimiter:   limiter,
		Observability: opts.Observability,
		Logger:        logger,
		Executor: executor.New(executor.Options{
			Engine:  engine,
			Limiter: limiter,
			Limits:  limits.FromConfig(cfg.RateLimits),
			Logger:  logger,
		}),
		HealthMon: health.NewMonitor(engine, cfg.Health, logger),
	}
	if opts.Redis != nil {
		container.Idempotency = cache.NewIdempotencyCache(opts.Redis, cfg.Server.IdempotencyTTL)
	}
	container.buildRoutes(ctx)
	return container, nil
}

// Reload rebuilds provider routes from the current config and drops cached
// catalogs so new settings take effect immediately.
func (c *Container) Reload(ctx context.Context) {
	for _, provider := range c.Catalog.Providers() {
		c.Catalog.Invalidate(provider)
	}
	c.buildRoutes(ctx)
}

func (c *Container) buildRoutes(ctx context.Context) {
	err := c.Engine.Reload(ctx, c.Factory)
	var failed providers.BuildErrors
	switch {
	case errors.As(err, &failed):
		for name, buildErr := range failed {
			c.Logger.Error("provider unavailable", slog.String("provider", name), slog.String("error", buildErr.Error()))
		}
	case err != nil:
		c.Logger.Error("provider routes failed", slog.String("error", err.Error()))
	}
	names := c.Engine.Names()
	c.Logger.Info("provider routes built", slog.Int("count", len(names)), slog.Any("providers", names))
}
