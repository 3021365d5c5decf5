package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/providers"
	"github.com/ncecere/model_router/internal/router"
)

// Status is the last probe result for one provider.
type Status struct {
	Provider  string    `json:"provider"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor periodically probes provider routes and feeds the results into the
// router engine's circuit breakers.
type Monitor struct {
	engine    *router.Engine
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	startOnce sync.Once

	mu     sync.RWMutex
	status map[string]Status
}

// NewMonitor constructs a monitor using the health configuration.
func NewMonitor(engine *router.Engine, cfg config.HealthConfig, logger *slog.Logger) *Monitor {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 || timeout > interval {
		timeout = min(10*time.Second, interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		engine:   engine,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		status:   make(map[string]Status),
	}
}

// Start begins the monitoring loop until ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	if m == nil || m.engine == nil {
		return
	}
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckNow(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow probes every route concurrently and waits for the results.
func (m *Monitor) CheckNow(ctx context.Context) {
	routes := m.engine.Routes()
	var wg sync.WaitGroup
	for name, route := range routes {
		if route.Health == nil {
			continue
		}
		wg.Add(1)
		go func(name string, route providers.Route) {
			defer wg.Done()
			m.probe(ctx, name, route)
		}(name, route)
	}
	wg.Wait()
}

func (m *Monitor) probe(ctx context.Context, name string, route providers.Route) {
	timeoutCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	status := Status{Provider: name, Healthy: true, CheckedAt: time.Now().UTC()}
	if err := route.Health(timeoutCtx); err != nil {
		status.Healthy = false
		status.Error = err.Error()
		m.engine.ReportFailure(name, err)
		m.logger.Warn("provider probe failed", slog.String("provider", name), slog.String("error", err.Error()))
	} else {
		m.engine.ReportSuccess(name)
	}

	m.mu.Lock()
	m.status[name] = status
	m.mu.Unlock()
}

// Statuses returns the last probe result per provider.
func (m *Monitor) Statuses() map[string]Status {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Status, len(m.status))
	for k, v := range m.status {
		out[k] = v
	}
	return out
}
