package providers

import (
	"context"

	"github.com/ncecere/model_router/internal/adapters/openaicompat"
)

const (
	deepInfraBaseURL  = "https://api.deepinfra.com/v1/openai"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

func init() {
	RegisterDefinition(Definition{
		Name:         "deepinfra",
		DisplayName:  "DeepInfra",
		Description:  "DeepInfra OpenAI-compatible inference with live model catalog",
		Capabilities: []string{"chat_stream", "complete", "catalog", "reasoning", "prompt_cache"},
		Builder:      buildDeepInfraRoute,
	})
	RegisterDefinition(Definition{
		Name:         "openrouter",
		DisplayName:  "OpenRouter",
		Description:  "OpenRouter aggregated models with live catalog and pricing",
		Capabilities: []string{"chat_stream", "complete", "catalog", "reasoning", "prompt_cache"},
		Builder:      buildOpenRouterRoute,
	})
	RegisterDefinition(Definition{
		Name:         "openai-compatible",
		DisplayName:  "OpenAI Compatible",
		Description:  "Any endpoint implementing the OpenAI chat completions API",
		Capabilities: []string{"chat_stream", "complete"},
		Builder:      buildOpenAICompatibleRoute,
	})
}

func openAIOptions(env Env, baseURL string) (openaicompat.Options, error) {
	res, err := newResolver(env)
	if err != nil {
		return openaicompat.Options{}, err
	}
	return openaicompat.Options{
		Provider:     env.Provider,
		APIKey:       env.Settings.APIKey,
		BaseURL:      firstNonEmpty(env.Settings.BaseURL, baseURL),
		Organization: env.Settings.Organization,
		Headers:      env.Settings.Headers,
		HTTPClient:   env.HTTPClient,
		MaxRetries:   env.Settings.MaxRetries,
		Resolver:     res,
		Logger:       env.Logger,
	}, nil
}

func buildDeepInfraRoute(_ context.Context, env Env) (Route, error) {
	opts, err := openAIOptions(env, deepInfraBaseURL)
	if err != nil {
		return Route{}, err
	}
	adapter, err := openaicompat.New(opts)
	if err != nil {
		return Route{}, err
	}
	env.Catalog.Register(env.Provider, adapter.DeepInfraFetcher())
	return Route{Handler: adapter, Health: catalogProbe(env)}, nil
}

func buildOpenRouterRoute(_ context.Context, env Env) (Route, error) {
	opts, err := openAIOptions(env, openRouterBaseURL)
	if err != nil {
		return Route{}, err
	}
	adapter, err := openaicompat.New(opts)
	if err != nil {
		return Route{}, err
	}
	env.Catalog.Register(env.Provider, adapter.OpenRouterFetcher())
	return Route{Handler: adapter, Health: catalogProbe(env)}, nil
}

func buildOpenAICompatibleRoute(_ context.Context, env Env) (Route, error) {
	if firstNonEmpty(env.Settings.BaseURL) == "" {
		return Route{}, errMissingSetting(env.Provider, "base_url")
	}
	opts, err := openAIOptions(env, "")
	if err != nil {
		return Route{}, err
	}
	adapter, err := openaicompat.New(opts)
	if err != nil {
		return Route{}, err
	}
	registerStatic(env)
	return Route{Handler: adapter}, nil
}

// catalogProbe refreshes the live catalog; a successful listing proves the
// key and warms the cache.
func catalogProbe(env Env) func(context.Context) error {
	cache, provider := env.Catalog, env.Provider
	return func(ctx context.Context) error {
		_, err := cache.Refresh(ctx, provider)
		return err
	}
}
