package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/providers"
	"github.com/ncecere/model_router/internal/providers/providererr"
)

func testEngine(fallbacks map[string][]string) *Engine {
	engine := NewEngine(config.RoutingConfig{Fallbacks: fallbacks})
	engine.SetRoutes(map[string]providers.Route{
		"deepinfra":  {Provider: "deepinfra"},
		"openrouter": {Provider: "openrouter"},
		"anthropic":  {Provider: "anthropic"},
	})
	return engine
}

func names(routes []providers.Route) []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.Provider)
	}
	return out
}

func TestSelectRoutesPrimaryThenFallbacks(t *testing.T) {
	engine := testEngine(map[string][]string{"open-router": {"deepinfra", "missing", "anthropic", "deepinfra"}})

	require.Equal(t, []string{"openrouter", "deepinfra", "anthropic"}, names(engine.SelectRoutes("openrouter")))
	require.Equal(t, []string{"deepinfra"}, names(engine.SelectRoutes("deepinfra")))
	require.Empty(t, engine.SelectRoutes("vertex"))
}

func TestCircuitBreakerTransitions(t *testing.T) {
	engine := testEngine(map[string][]string{"openrouter": {"deepinfra"}})
	now := time.Now()
	engine.now = func() time.Time { return now }

	transport := providererr.New(providererr.KindTransport, "openrouter", "boom")
	for i := 0; i < failureThreshold-1; i++ {
		engine.ReportFailure("openrouter", transport)
	}
	require.False(t, engine.Open("openrouter"))
	engine.ReportFailure("openrouter", transport)
	require.True(t, engine.Open("openrouter"))
	require.Equal(t, []string{"deepinfra"}, names(engine.SelectRoutes("openrouter")))

	now = now.Add(openDuration + time.Second)
	require.False(t, engine.Open("openrouter"))
	require.Equal(t, []string{"openrouter", "deepinfra"}, names(engine.SelectRoutes("openrouter")))

	engine.ReportSuccess("openrouter")
	require.Zero(t, engine.state["openrouter"].consecutiveFailures)
}

func TestAuthAndCancelDoNotTripBreaker(t *testing.T) {
	engine := testEngine(nil)
	auth := providererr.New(providererr.KindAuth, "anthropic", "bad key")
	canceled := providererr.Normalize("anthropic", context.Canceled)
	for i := 0; i < failureThreshold*2; i++ {
		engine.ReportFailure("anthropic", auth)
		engine.ReportFailure("anthropic", canceled)
	}
	require.False(t, engine.Open("anthropic"))

	for i := 0; i < failureThreshold; i++ {
		engine.ReportFailure("anthropic", errors.New("probe failed"))
	}
	require.True(t, engine.Open("anthropic"))
}

func TestSetRoutesKeepsStateForSurvivors(t *testing.T) {
	engine := testEngine(nil)
	rate := providererr.New(providererr.KindRateLimit, "deepinfra", "slow")
	for i := 0; i < failureThreshold; i++ {
		engine.ReportFailure("deepinfra", rate)
		engine.ReportFailure("anthropic", rate)
	}

	engine.SetRoutes(map[string]providers.Route{"deepinfra": {Provider: "deepinfra"}})
	require.True(t, engine.Open("deepinfra"))
	require.False(t, engine.Open("anthropic"))
	require.Equal(t, []string{"deepinfra"}, engine.Names())
}

func TestReloadInstallsRoutesThatBuilt(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderSettings{
		"anthropic":         {APIKey: "sk-ant", BaseURL: "http://127.0.0.1:1"},
		"openai-compatible": {APIKey: "k", ModelID: "local"},
	}}
	engine := testEngine(nil)
	engine.ReportFailure("anthropic", providererr.New(providererr.KindTransport, "anthropic", "reset"))

	err := engine.Reload(context.Background(), providers.NewFactory(providers.FactoryOptions{Config: cfg}))
	var failed providers.BuildErrors
	require.ErrorAs(t, err, &failed)
	require.Contains(t, failed, "openai-compatible")
	require.Equal(t, []string{"anthropic"}, engine.Names())
	require.Equal(t, 1, engine.state["anthropic"].consecutiveFailures)
}
