package router

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ncecere/model_router/internal/catalog"
	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/providers"
	"github.com/ncecere/model_router/internal/providers/providererr"
)

// Engine owns the built provider routes and their circuit breaker state.
type Engine struct {
	mu        sync.RWMutex
	routes    map[string]providers.Route
	fallbacks map[string][]string
	state     map[string]*routeState

	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

type routeState struct {
	consecutiveFailures int
	openUntil           time.Time
}

const (
	failureThreshold = 3
	openDuration     = time.Minute
)

func NewEngine(cfg config.RoutingConfig) *Engine {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = failureThreshold
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = openDuration
	}
	fallbacks := make(map[string][]string, len(cfg.Fallbacks))
	for primary, fbs := range cfg.Fallbacks {
		key := catalog.NormalizeProviderSlug(primary)
		for _, fb := range fbs {
			fallbacks[key] = append(fallbacks[key], catalog.NormalizeProviderSlug(fb))
		}
	}
	return &Engine{
		routes:    make(map[string]providers.Route),
		fallbacks: fallbacks,
		state:     make(map[string]*routeState),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Reload rebuilds every configured provider. Routes that built are installed
// even when others fail; the returned error lists the failures. Breaker state
// survives for providers that are still present.
func (e *Engine) Reload(ctx context.Context, factory *providers.Factory) error {
	routes, err := factory.Build(ctx)
	e.SetRoutes(routes)
	return err
}

func (e *Engine) SetRoutes(routes map[string]providers.Route) {
	e.mu.Lock()
	defer e.mu.Unlock()

	newState := make(map[string]*routeState, len(routes))
	for name := range routes {
		if old, ok := e.state[name]; ok {
			newState[name] = old
		} else {
			newState[name] = &routeState{}
		}
	}
	e.routes = routes
	e.state = newState
}

// Route returns the provider's route regardless of breaker state.
func (e *Engine) Route(provider string) (providers.Route, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	route, ok := e.routes[catalog.NormalizeProviderSlug(provider)]
	return route, ok
}

// SelectRoutes returns the primary followed by its configured fallbacks,
// skipping providers whose circuit is open.
func (e *Engine) SelectRoutes(provider string) []providers.Route {
	e.mu.RLock()
	defer e.mu.RUnlock()

	primary := catalog.NormalizeProviderSlug(provider)
	candidates := append([]string{primary}, e.fallbacks[primary]...)
	now := e.now()

	seen := make(map[string]bool, len(candidates))
	healthy := make([]providers.Route, 0, len(candidates))
	for _, name := range candidates {
		if seen[name] {
			continue
		}
		seen[name] = true
		route, ok := e.routes[name]
		if !ok {
			continue
		}
		if st := e.state[name]; st != nil && st.openUntil.After(now) {
			continue
		}
		healthy = append(healthy, route)
	}
	return healthy
}

func (e *Engine) ReportSuccess(provider string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(provider)
	st.consecutiveFailures = 0
	st.openUntil = time.Time{}
}

// ReportFailure counts a failed call. Auth failures are configuration errors
// and never open the circuit; neither does caller cancellation.
func (e *Engine) ReportFailure(provider string, err error) {
	if err != nil && providererr.KindOf(err) != "" && !providererr.Retryable(err) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(provider)
	st.consecutiveFailures++
	if st.consecutiveFailures >= e.threshold {
		st.openUntil = e.now().Add(e.cooldown)
	}
}

func (e *Engine) stateFor(provider string) *routeState {
	key := catalog.NormalizeProviderSlug(provider)
	st := e.state[key]
	if st == nil {
		st = &routeState{}
		e.state[key] = st
	}
	return st
}

// Open reports whether the provider's circuit is currently open.
func (e *Engine) Open(provider string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st := e.state[catalog.NormalizeProviderSlug(provider)]
	return st != nil && st.openUntil.After(e.now())
}

// Routes returns a copy of the built routes.
func (e *Engine) Routes() map[string]providers.Route {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]providers.Route, len(e.routes))
	for name, route := range e.routes {
		out[name] = route
	}
	return out
}

// Names returns the built provider names, sorted.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.routes))
	for name := range e.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
