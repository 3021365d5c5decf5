package providers

import (
	"fmt"
	"strings"

	"github.com/ncecere/model_router/internal/catalog"
	"github.com/ncecere/model_router/internal/config"
	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/modelparams"
	"github.com/ncecere/model_router/internal/providers/resolver"
)

func modelSettings(s config.ProviderSettings) models.Settings {
	return models.Settings{
		APIKey:      strings.TrimSpace(s.APIKey),
		BaseURL:     strings.TrimSpace(s.BaseURL),
		ModelID:     strings.TrimSpace(s.ModelID),
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}
}

func newResolver(env Env) (*resolver.Resolver, error) {
	def, _ := catalog.DefaultFor(env.Provider)
	return resolver.New(resolver.Options{
		Provider:    env.Provider,
		DefaultID:   def.ModelID,
		DefaultInfo: def.Info,
		Catalog:     env.Catalog,
		Settings:    modelSettings(env.Settings),
		Policy: modelparams.Policy{
			DefaultTemperature: env.Definition.DefaultTemperature,
			RequireMaxTokens:   env.Definition.RequireMaxTokens,
		},
	})
}

// registerStatic installs the provider's built-in model table as its catalog.
func registerStatic(env Env) {
	env.Catalog.Register(env.Provider, catalog.StaticFetcher(catalog.StaticModels(env.Provider)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func errMissingSetting(provider, key string) error {
	return fmt.Errorf("providers.%s.%s must be provided", provider, key)
}
