package providers

import (
	"context"

	"github.com/ncecere/model_router/internal/adapters/bedrock"
)

func init() {
	RegisterDefinition(Definition{
		Name:             "bedrock",
		DisplayName:      "Bedrock",
		Description:      "AWS Bedrock serving Anthropic Claude models",
		Capabilities:     []string{"chat_stream", "complete", "reasoning", "prompt_cache"},
		RequireMaxTokens: true,
		Builder:          buildBedrockRoute,
	})
}

func buildBedrockRoute(ctx context.Context, env Env) (Route, error) {
	res, err := newResolver(env)
	if err != nil {
		return Route{}, err
	}
	adapter, err := bedrock.New(ctx, bedrock.Options{
		Provider:         env.Provider,
		Region:           env.Settings.Region,
		Profile:          env.Settings.Profile,
		AccessKeyID:      env.Settings.AccessKeyID,
		SecretAccessKey:  env.Settings.SecretAccessKey,
		SessionToken:     env.Settings.SessionToken,
		AnthropicVersion: env.Settings.AnthropicVersion,
		Resolver:         res,
		Logger:           env.Logger,
	})
	if err != nil {
		return Route{}, err
	}
	registerStatic(env)
	return Route{Handler: adapter}, nil
}
