package providers

import (
	"context"

	"github.com/ncecere/model_router/internal/adapters/openaicompat"
)

func init() {
	RegisterDefinition(Definition{
		Name:         "vertex",
		DisplayName:  "Vertex",
		Description:  "Google Vertex AI through its OpenAI-compatible endpoint",
		Capabilities: []string{"chat_stream", "complete"},
		Builder:      buildVertexRoute,
	})
}

func buildVertexRoute(ctx context.Context, env Env) (Route, error) {
	opts, err := openAIOptions(env, "")
	if err != nil {
		return Route{}, err
	}
	var creds []byte
	if raw := firstNonEmpty(env.Settings.CredentialsJSON); raw != "" {
		creds = []byte(raw)
	}
	adapter, err := openaicompat.NewVertex(ctx, openaicompat.VertexOptions{
		Options:         opts,
		ProjectID:       env.Settings.ProjectID,
		Location:        env.Settings.Location,
		CredentialsJSON: creds,
	})
	if err != nil {
		return Route{}, err
	}
	registerStatic(env)
	return Route{Handler: adapter}, nil
}
