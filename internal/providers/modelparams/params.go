// Package modelparams resolves the effective max tokens and temperature for a
// request from caller settings and model metadata.
package modelparams

import "github.com/ncecere/model_router/internal/models"

const (
	// DefaultFallbackMaxTokens is used when a wire format requires max tokens
	// and neither the caller nor the model declares one.
	DefaultFallbackMaxTokens = 1024

	minTemperature = 0.0
	maxTemperature = 2.0
)

type Policy struct {
	DefaultTemperature float64
	// RequireMaxTokens marks wire formats (Anthropic messages) where
	// max_tokens cannot be omitted.
	RequireMaxTokens  bool
	FallbackMaxTokens int
}

// Resolve derives request parameters. Identical inputs always produce
// identical output.
func (p Policy) Resolve(settings models.Settings, info models.ModelInfo) models.Params {
	return models.Params{
		MaxTokens:   p.maxTokens(settings.MaxTokens, info.MaxTokens),
		Temperature: p.temperature(settings.Temperature),
	}
}

func (p Policy) maxTokens(requested, declared int) int {
	if requested > 0 {
		if declared > 0 && requested > declared {
			return declared
		}
		return requested
	}
	if !p.RequireMaxTokens {
		return 0
	}
	if declared > 0 {
		return declared
	}
	if p.FallbackMaxTokens > 0 {
		return p.FallbackMaxTokens
	}
	return DefaultFallbackMaxTokens
}

func (p Policy) temperature(requested *float64) float64 {
	t := p.DefaultTemperature
	if requested != nil {
		t = *requested
	}
	switch {
	case t < minTemperature:
		return minTemperature
	case t > maxTemperature:
		return maxTemperature
	}
	return t
}
