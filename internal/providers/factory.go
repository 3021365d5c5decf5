package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/ncecere/model_router/internal/catalog"
	"github.com/ncecere/model_router/internal/config"
)

// Env is what a builder gets to construct one provider.
type Env struct {
	Provider   string
	Definition Definition
	Settings   config.ProviderSettings
	Catalog    *catalog.Cache
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Builder constructs a provider Route from its settings. Builders register the
// provider's catalog fetcher with env.Catalog.
type Builder func(ctx context.Context, env Env) (Route, error)

type FactoryOptions struct {
	Config     *config.Config
	Catalog    *catalog.Cache
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Recorder, when set, wraps every handler with Instrument.
	Recorder Recorder
}

// Factory builds provider routes from configuration using a registry of builders.
type Factory struct {
	cfg         *config.Config
	catalog     *catalog.Cache
	httpClient  *http.Client
	logger      *slog.Logger
	recorder    Recorder
	definitions map[string]Definition
}

// NewFactory creates a factory with the default provider registry.
func NewFactory(opts FactoryOptions) *Factory {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	cache := opts.Catalog
	if cache == nil {
		cache = catalog.New(catalog.Options{TTL: cfg.Catalog.TTL, Logger: opts.Logger})
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		cfg:         cfg,
		catalog:     cache,
		httpClient:  opts.HTTPClient,
		logger:      logger,
		recorder:    opts.Recorder,
		definitions: cloneDefaultDefinitions(),
	}
}

// Register allows tests or callers to override provider builders.
func (f *Factory) Register(def Definition) {
	def.Name = catalog.NormalizeProviderSlug(def.Name)
	if def.DisplayName == "" {
		def.DisplayName = def.Name
	}
	f.definitions[def.Name] = def
}

func (f *Factory) Catalog() *catalog.Cache { return f.catalog }

// New builds the handler for a single provider using its configured settings.
func (f *Factory) New(ctx context.Context, provider string) (Route, error) {
	name := catalog.NormalizeProviderSlug(provider)
	def, ok := f.definitions[name]
	if !ok {
		return Route{}, fmt.Errorf("provider %q unsupported", provider)
	}
	settings, _ := f.cfg.Provider(name)
	return f.build(ctx, def, settings)
}

// NewWithSettings builds a provider from explicit settings, bypassing config.
func (f *Factory) NewWithSettings(ctx context.Context, provider string, settings config.ProviderSettings) (Route, error) {
	name := catalog.NormalizeProviderSlug(provider)
	def, ok := f.definitions[name]
	if !ok {
		return Route{}, fmt.Errorf("provider %q unsupported", provider)
	}
	return f.build(ctx, def, settings)
}

// BuildErrors maps provider names to the reason they failed to build.
type BuildErrors map[string]error

func (b BuildErrors) Error() string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("provider %q: %v", name, b[name]))
	}
	return strings.Join(parts, "; ")
}

// Build instantiates every configured, enabled provider. Providers that fail
// are skipped; the routes that did build are returned together with a
// BuildErrors describing the failures.
func (f *Factory) Build(ctx context.Context) (map[string]Route, error) {
	routes := make(map[string]Route)
	failed := BuildErrors{}
	for _, name := range f.cfg.Configured() {
		route, err := f.New(ctx, name)
		if err != nil {
			failed[name] = err
			continue
		}
		routes[route.Provider] = route
	}
	if len(failed) > 0 {
		return routes, failed
	}
	return routes, nil
}

func (f *Factory) build(ctx context.Context, def Definition, settings config.ProviderSettings) (Route, error) {
	route, err := def.Builder(ctx, Env{
		Provider:   def.Name,
		Definition: def,
		Settings:   settings,
		Catalog:    f.catalog,
		HTTPClient: f.httpClient,
		Logger:     f.logger.With(slog.String("provider", def.Name)),
	})
	if err != nil {
		return Route{}, err
	}
	if route.Provider == "" {
		route.Provider = def.Name
	}
	if route.DisplayName == "" {
		route.DisplayName = def.DisplayName
	}
	if route.Health == nil {
		if prober, ok := route.Handler.(Prober); ok {
			route.Health = prober.Probe
		}
	}
	if f.recorder != nil {
		route.Handler = Instrument(route.Handler, route.Provider, f.recorder)
	}
	return route, nil
}
