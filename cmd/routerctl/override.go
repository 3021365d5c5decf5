package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ncecere/model_router/internal/app"
)

// overrides replace configured settings for a single invocation, so a key or
// model can be tried without editing the config file.
type overrides struct {
	apiKey  string
	baseURL string
	modelID string
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.apiKey, "api-key", "", "API key to use instead of the configured one")
	cmd.Flags().StringVar(&o.baseURL, "base-url", "", "Base URL to use instead of the configured one")
	cmd.Flags().StringVar(&o.modelID, "model", "", "Model id to use instead of the configured one")
}

func (o overrides) empty() bool {
	return o.apiKey == "" && o.baseURL == "" && o.modelID == ""
}

// apply rebuilds provider's route from its configured settings with the
// overrides on top and installs it in the engine.
func (o overrides) apply(ctx context.Context, c *app.Container, provider string) error {
	if o.empty() {
		return nil
	}
	settings, _ := c.Config.Provider(provider)
	if key := strings.TrimSpace(o.apiKey); key != "" {
		settings.APIKey = key
	}
	if o.baseURL != "" {
		settings.BaseURL = o.baseURL
	}
	if model := strings.TrimSpace(o.modelID); model != "" {
		settings.ModelID = model
	}

	route, err := c.Factory.NewWithSettings(ctx, provider, settings)
	if err != nil {
		return err
	}
	routes := c.Engine.Routes()
	routes[route.Provider] = route
	c.Engine.SetRoutes(routes)
	return nil
}
