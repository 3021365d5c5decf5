package observability

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/models"
)

func TestSetupDisabledReturnsNil(t *testing.T) {
	p, err := Setup(context.Background(), config.ObservabilityConfig{})
	require.NoError(t, err)
	require.Nil(t, p)

	// nil providers are inert
	p.RecordStream("x", "m", "ok", time.Second, time.Second)
	p.RecordTokens("x", "m", models.StreamChunk{InputTokens: 1})
	p.RecordCatalogFetch("x", "fetch", time.Millisecond)
	require.Nil(t, p.PrometheusHandler())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestMetricsExposed(t *testing.T) {
	p, err := Setup(context.Background(), config.ObservabilityConfig{EnableMetrics: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	p.RecordStream("openrouter", "anthropic/claude-sonnet-4", "ok", 100*time.Millisecond, time.Second)
	p.RecordTokens("openrouter", "anthropic/claude-sonnet-4", models.StreamChunk{InputTokens: 20, OutputTokens: 7, TotalCost: 0.00042})
	p.RecordCatalogFetch("openrouter", "fetch", 50*time.Millisecond)
	p.RecordHTTPRequest(context.Background(), "POST", "/v1/providers/:provider/messages", 200, time.Second)

	rec := httptest.NewRecorder()
	p.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	require.Contains(t, string(body), `model_router_provider_tokens_total{model="anthropic/claude-sonnet-4",provider="openrouter",type="input"} 20`)
	require.Contains(t, string(body), "model_router_provider_cost_usd_total")
	require.Contains(t, string(body), `model_router_catalog_fetch_total{outcome="fetch",provider="openrouter"} 1`)
	require.Contains(t, string(body), "model_router_http_requests_total")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "provider", "bedrock")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"provider":"bedrock"`)
}
