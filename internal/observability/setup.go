package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/models"
)

const namespace = "model_router"

type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *metric.MeterProvider
	promHandler    http.Handler
	shutdownFuncs  []func(context.Context) error

	httpRequestCounter *promreg.CounterVec
	httpRequestLatency *promreg.HistogramVec
	streamLatency      *promreg.HistogramVec
	firstChunkLatency  *promreg.HistogramVec
	tokensCounter      *promreg.CounterVec
	costCounter        *promreg.CounterVec
	catalogFetches     *promreg.CounterVec
	catalogLatency     *promreg.HistogramVec
}

// Setup wires tracing and metrics. A nil Provider is returned when both are
// disabled; every method is safe on nil.
func Setup(ctx context.Context, cfg config.ObservabilityConfig) (*Provider, error) {
	if !cfg.EnableOTLP && !cfg.EnableMetrics {
		return nil, nil
	}

	provider := &Provider{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("model-router"),
		),
	)
	if err != nil {
		return nil, err
	}

	if cfg.EnableOTLP {
		endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		opts := []otlptracegrpc.Option{}
		switch {
		case strings.HasPrefix(endpoint, "http://"):
			endpoint = strings.TrimPrefix(endpoint, "http://")
			opts = append(opts, otlptracegrpc.WithInsecure())
		case strings.HasPrefix(endpoint, "https://"):
			endpoint = strings.TrimPrefix(endpoint, "https://")
		default:
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))

		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		provider.tracerProvider = tp
		provider.shutdownFuncs = append(provider.shutdownFuncs, tp.Shutdown)
	}

	if cfg.EnableMetrics {
		if err := provider.setupMetrics(res); err != nil {
			return nil, err
		}
	}

	return provider, nil
}

func (p *Provider) setupMetrics(res *resource.Resource) error {
	registry := promreg.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return err
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(promExporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	p.meterProvider = mp
	p.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	p.shutdownFuncs = append(p.shutdownFuncs, mp.Shutdown)

	latencyBuckets := []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30, 60}

	p.httpRequestCounter = promreg.NewCounterVec(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})
	p.httpRequestLatency = promreg.NewHistogramVec(promreg.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   latencyBuckets,
	}, []string{"method", "route", "status"})
	p.streamLatency = promreg.NewHistogramVec(promreg.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Duration of upstream provider calls, stream or single-shot.",
		Buckets:   latencyBuckets,
	}, []string{"provider", "model", "outcome"})
	p.firstChunkLatency = promreg.NewHistogramVec(promreg.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_first_chunk_seconds",
		Help:      "Time until the first chunk of an upstream response.",
		Buckets:   latencyBuckets,
	}, []string{"provider", "model"})
	p.tokensCounter = promreg.NewCounterVec(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "provider_tokens_total",
		Help:      "Tokens reported by providers.",
	}, []string{"provider", "model", "type"})
	p.costCounter = promreg.NewCounterVec(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "provider_cost_usd_total",
		Help:      "Reported or computed USD cost of provider calls.",
	}, []string{"provider", "model"})
	p.catalogFetches = promreg.NewCounterVec(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_fetch_total",
		Help:      "Model catalog lookups by outcome.",
	}, []string{"provider", "outcome"})
	p.catalogLatency = promreg.NewHistogramVec(promreg.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_fetch_duration_seconds",
		Help:      "Duration of model catalog fetches.",
		Buckets:   latencyBuckets,
	}, []string{"provider"})

	for _, c := range []promreg.Collector{
		p.httpRequestCounter, p.httpRequestLatency, p.streamLatency, p.firstChunkLatency,
		p.tokensCounter, p.costCounter, p.catalogFetches, p.catalogLatency,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	if p == nil {
		return nil
	}
	return p.tracerProvider
}

func (p *Provider) RecordHTTPRequest(_ context.Context, method, route string, status int, duration time.Duration) {
	if p == nil || p.httpRequestCounter == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	p.httpRequestCounter.WithLabelValues(method, route, statusLabel).Inc()
	p.httpRequestLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

// RecordStream implements providers.Recorder.
func (p *Provider) RecordStream(provider, model, outcome string, firstChunk, total time.Duration) {
	if p == nil || p.streamLatency == nil {
		return
	}
	p.streamLatency.WithLabelValues(provider, model, outcome).Observe(total.Seconds())
	if firstChunk > 0 {
		p.firstChunkLatency.WithLabelValues(provider, model).Observe(firstChunk.Seconds())
	}
}

// RecordTokens implements providers.Recorder.
func (p *Provider) RecordTokens(provider, model string, usage models.StreamChunk) {
	if p == nil || p.tokensCounter == nil {
		return
	}
	counts := map[string]int64{
		"input":       usage.InputTokens,
		"output":      usage.OutputTokens,
		"cache_write": usage.CacheWriteTokens,
		"cache_read":  usage.CacheReadTokens,
	}
	for kind, n := range counts {
		if n > 0 {
			p.tokensCounter.WithLabelValues(provider, model, kind).Add(float64(n))
		}
	}
	if usage.TotalCost > 0 {
		p.costCounter.WithLabelValues(provider, model).Add(usage.TotalCost)
	}
}

// RecordCatalogFetch implements catalog.Observer.
func (p *Provider) RecordCatalogFetch(provider, outcome string, elapsed time.Duration) {
	if p == nil || p.catalogFetches == nil {
		return
	}
	p.catalogFetches.WithLabelValues(provider, outcome).Inc()
	p.catalogLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}
