package providers

import (
	"context"

	"github.com/ncecere/model_router/internal/adapters/anthropic"
)

func init() {
	RegisterDefinition(Definition{
		Name:             "anthropic",
		DisplayName:      "Anthropic",
		Description:      "Anthropic Claude Messages API",
		Capabilities:     []string{"chat_stream", "complete", "reasoning", "prompt_cache"},
		RequireMaxTokens: true,
		Builder:          buildAnthropicRoute,
	})
}

func buildAnthropicRoute(_ context.Context, env Env) (Route, error) {
	res, err := newResolver(env)
	if err != nil {
		return Route{}, err
	}
	adapter, err := anthropic.New(anthropic.Options{
		Provider:   env.Provider,
		APIKey:     env.Settings.APIKey,
		BaseURL:    env.Settings.BaseURL,
		Version:    env.Settings.APIVersion,
		HTTPClient: env.HTTPClient,
		Resolver:   res,
		Logger:     env.Logger,
	})
	if err != nil {
		return Route{}, err
	}
	registerStatic(env)
	return Route{Handler: adapter}, nil
}
