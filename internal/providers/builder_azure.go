package providers

import (
	"context"

	"github.com/ncecere/model_router/internal/adapters/openaicompat"
)

func init() {
	RegisterDefinition(Definition{
		Name:         "azure-openai",
		DisplayName:  "Azure OpenAI",
		Description:  "Azure OpenAI deployments (model_id is the deployment name)",
		Capabilities: []string{"chat_stream", "complete"},
		Builder:      buildAzureRoute,
	})
}

func buildAzureRoute(_ context.Context, env Env) (Route, error) {
	opts, err := openAIOptions(env, "")
	if err != nil {
		return Route{}, err
	}
	opts.BaseURL = ""
	adapter, err := openaicompat.NewAzure(openaicompat.AzureOptions{
		Options:    opts,
		Endpoint:   firstNonEmpty(env.Settings.Endpoint, env.Settings.BaseURL),
		APIVersion: env.Settings.APIVersion,
	})
	if err != nil {
		return Route{}, err
	}
	registerStatic(env)
	return Route{Handler: adapter}, nil
}
