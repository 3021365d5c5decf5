package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_router/internal/catalog"
	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/fixtures"
	"github.com/ncecere/model_router/internal/providers/providererr"
	"github.com/ncecere/model_router/internal/providers/streamutil"
)

func TestDefaultDefinitionsRegistered(t *testing.T) {
	names := make([]string, 0)
	for _, def := range DefaultDefinitions() {
		names = append(names, def.Name)
	}
	require.Equal(t, []string{"anthropic", "azure-openai", "bedrock", "deepinfra", "openai-compatible", "openrouter", "vertex"}, names)

	def, ok := Lookup("Open-Router")
	require.True(t, ok)
	require.Equal(t, "OpenRouter", def.DisplayName)
	require.Equal(t, "OpenRouter", providererr.DisplayName("openrouter"))

	bedrock, ok := Lookup("aws-bedrock")
	require.True(t, ok)
	require.True(t, bedrock.RequireMaxTokens)
}

func deepInfraServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/models"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(fixtures.MustRead("deepinfra_models.json"))
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = w.Write(fixtures.MustRead("deepinfra_stream.sse"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFactoryNewDeepInfraUsesLiveCatalog(t *testing.T) {
	srv := deepInfraServer(t)
	cfg := &config.Config{Providers: map[string]config.ProviderSettings{
		"deepinfra": {APIKey: "di-key", BaseURL: srv.URL, ModelID: "meta-llama/Meta-Llama-3.1-70B-Instruct"},
	}}
	factory := NewFactory(FactoryOptions{Config: cfg})

	route, err := factory.New(context.Background(), "deep-infra")
	require.NoError(t, err)
	require.Equal(t, "deepinfra", route.Provider)
	require.Equal(t, "DeepInfra", route.DisplayName)
	require.NotNil(t, route.Health)

	model := route.Handler.FetchModel(context.Background())
	require.Equal(t, models.SourceCatalog, model.Source)
	require.Equal(t, 131072, model.Info.ContextWindow)

	res, err := streamutil.Collect(route.Handler.CreateMessage(context.Background(), "", []models.Message{models.UserText("hi")}, nil))
	require.NoError(t, err)
	require.NotEmpty(t, res.Text)
	require.NotNil(t, res.Usage)

	require.NoError(t, route.Health(context.Background()))
}

func TestFactoryErrors(t *testing.T) {
	factory := NewFactory(FactoryOptions{Config: &config.Config{Providers: map[string]config.ProviderSettings{
		"openrouter":        {},
		"openai-compatible": {APIKey: "k", BaseURL: "http://localhost:1"},
	}}})

	_, err := factory.New(context.Background(), "openrouter")
	require.True(t, providererr.IsAuth(err))

	_, err = factory.New(context.Background(), "openai-compatible")
	require.ErrorIs(t, err, providererr.ErrModelResolution)

	_, err = factory.New(context.Background(), "nope")
	require.Error(t, err)

	_, err = factory.NewWithSettings(context.Background(), "openai-compatible", config.ProviderSettings{APIKey: "k"})
	require.ErrorContains(t, err, "base_url")
}

func TestFactoryBuildConfiguredProviders(t *testing.T) {
	srv := deepInfraServer(t)
	disabled := false
	cfg := &config.Config{Providers: map[string]config.ProviderSettings{
		"deepinfra": {APIKey: "di-key", BaseURL: srv.URL},
		"anthropic": {APIKey: "sk-ant", BaseURL: srv.URL},
		"bedrock":   {Enabled: &disabled, Region: "us-east-1"},
	}}
	factory := NewFactory(FactoryOptions{Config: cfg, Catalog: catalog.New(catalog.Options{TTL: time.Minute})})

	routes, err := factory.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 2)
	require.Contains(t, routes, "deepinfra")
	require.Contains(t, routes, "anthropic")
	require.ElementsMatch(t, []string{"anthropic", "deepinfra"}, factory.Catalog().Providers())

	anthropicModel := routes["anthropic"].Handler.FetchModel(context.Background())
	require.Equal(t, models.SourceCatalog, anthropicModel.Source)
	require.Positive(t, anthropicModel.Params.MaxTokens)
}

type recorder struct {
	mu       sync.Mutex
	outcomes []string
	tokens   []models.StreamChunk
}

func (r *recorder) RecordStream(_, _, outcome string, _, _ time.Duration) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func (r *recorder) RecordTokens(_, _ string, usage models.StreamChunk) {
	r.mu.Lock()
	r.tokens = append(r.tokens, usage)
	r.mu.Unlock()
}

func TestInstrumentRecordsStreams(t *testing.T) {
	srv := deepInfraServer(t)
	rec := &recorder{}
	cfg := &config.Config{Providers: map[string]config.ProviderSettings{
		"deepinfra": {APIKey: "di-key", BaseURL: srv.URL},
	}}
	factory := NewFactory(FactoryOptions{Config: cfg, Recorder: rec})
	route, err := factory.New(context.Background(), "deepinfra")
	require.NoError(t, err)

	_, err = streamutil.Collect(route.Handler.CreateMessage(context.Background(), "", []models.Message{models.UserText("hi")}, nil))
	require.NoError(t, err)
	require.Equal(t, []string{"ok"}, rec.outcomes)
	require.Len(t, rec.tokens, 1)
	require.EqualValues(t, 12, rec.tokens[0].InputTokens)

	for range route.Handler.CreateMessage(context.Background(), "", []models.Message{models.UserText("hi")}, nil) {
		break
	}
	require.Equal(t, []string{"ok", "abandoned"}, rec.outcomes)

	_, ok := route.Handler.(Prober)
	require.True(t, ok)
}

func TestFactoryBuildSkipsBrokenProviders(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderSettings{
		"anthropic":         {APIKey: "sk-ant", BaseURL: "http://127.0.0.1:1"},
		"openai-compatible": {APIKey: "k", ModelID: "local"},
	}}
	factory := NewFactory(FactoryOptions{Config: cfg})

	routes, err := factory.Build(context.Background())
	require.Error(t, err)
	require.Contains(t, routes, "anthropic")
	require.NotContains(t, routes, "openai-compatible")

	var failed BuildErrors
	require.ErrorAs(t, err, &failed)
	require.Len(t, failed, 1)
	require.Contains(t, failed["openai-compatible"].Error(), "base_url")
	require.Contains(t, err.Error(), `provider "openai-compatible"`)
}
