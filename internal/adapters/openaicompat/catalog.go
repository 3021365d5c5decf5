package openaicompat

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/ncecere/model_router/internal/catalog"
	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/pricing"
	"github.com/ncecere/model_router/internal/providers/providererr"
)

const (
	deepInfraFallbackContext = 8192
	// Completion budget assumed when DeepInfra omits max_tokens.
	deepInfraMaxTokensShare = 0.2
)

type deepInfraModelsResponse struct {
	Data []deepInfraModel `json:"data"`
}

type deepInfraModel struct {
	ID       string             `json:"id"`
	Metadata *deepInfraMetadata `json:"metadata"`
}

type deepInfraMetadata struct {
	Description   string   `json:"description"`
	ContextLength *int     `json:"context_length"`
	MaxTokens     *int     `json:"max_tokens"`
	Tags          []string `json:"tags"`
	Pricing       struct {
		InputTokens     float64 `json:"input_tokens"`
		OutputTokens    float64 `json:"output_tokens"`
		CacheReadTokens float64 `json:"cache_read_tokens"`
	} `json:"pricing"`
}

// DeepInfraFetcher lists models from the DeepInfra OpenAI endpoint. Entries
// without metadata are not chat models and are skipped.
func (a *Adapter) DeepInfraFetcher() catalog.Fetcher {
	return catalog.FetcherFunc(func(ctx context.Context) (models.ModelRecord, error) {
		var resp deepInfraModelsResponse
		if err := a.client.Get(ctx, "models", nil, &resp); err != nil {
			return nil, providererr.Normalize(a.provider, err)
		}
		return parseDeepInfraModels(resp), nil
	})
}

func parseDeepInfraModels(resp deepInfraModelsResponse) models.ModelRecord {
	record := make(models.ModelRecord, len(resp.Data))
	for _, m := range resp.Data {
		if m.ID == "" || m.Metadata == nil {
			continue
		}
		meta := m.Metadata
		contextWindow := deepInfraFallbackContext
		if meta.ContextLength != nil {
			contextWindow = *meta.ContextLength
		}
		maxTokens := int(math.Ceil(float64(contextWindow) * deepInfraMaxTokensShare))
		if meta.MaxTokens != nil {
			maxTokens = *meta.MaxTokens
		}
		record[m.ID] = models.ModelInfo{
			MaxTokens:           maxTokens,
			ContextWindow:       contextWindow,
			SupportsImages:      slices.Contains(meta.Tags, "vision"),
			SupportsPromptCache: slices.Contains(meta.Tags, "prompt_cache"),
			InputPrice:          meta.Pricing.InputTokens,
			OutputPrice:         meta.Pricing.OutputTokens,
			CacheReadsPrice:     meta.Pricing.CacheReadTokens,
			Description:         meta.Description,
		}
	}
	return record
}

type openRouterModelsResponse struct {
	Data []openRouterModel `json:"data"`
}

type openRouterModel struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	ContextLength int    `json:"context_length"`
	Architecture  struct {
		InputModalities []string `json:"input_modalities"`
	} `json:"architecture"`
	TopProvider struct {
		MaxCompletionTokens *int `json:"max_completion_tokens"`
	} `json:"top_provider"`
	Pricing struct {
		Prompt          string `json:"prompt"`
		Completion      string `json:"completion"`
		InputCacheRead  string `json:"input_cache_read"`
		InputCacheWrite string `json:"input_cache_write"`
	} `json:"pricing"`
	SupportedParameters []string `json:"supported_parameters"`
}

// OpenRouterFetcher lists models from the OpenRouter catalog. Prices are
// published per token and converted to per million.
func (a *Adapter) OpenRouterFetcher() catalog.Fetcher {
	return catalog.FetcherFunc(func(ctx context.Context) (models.ModelRecord, error) {
		var resp openRouterModelsResponse
		if err := a.client.Get(ctx, "models", nil, &resp); err != nil {
			return nil, providererr.Normalize(a.provider, err)
		}
		return parseOpenRouterModels(resp)
	})
}

func parseOpenRouterModels(resp openRouterModelsResponse) (models.ModelRecord, error) {
	record := make(models.ModelRecord, len(resp.Data))
	for _, m := range resp.Data {
		if m.ID == "" {
			continue
		}
		input, err := pricing.PerTokenToPerMillion(m.Pricing.Prompt)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.ID, err)
		}
		output, err := pricing.PerTokenToPerMillion(m.Pricing.Completion)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.ID, err)
		}
		cacheRead, err := pricing.PerTokenToPerMillion(m.Pricing.InputCacheRead)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.ID, err)
		}
		cacheWrite, err := pricing.PerTokenToPerMillion(m.Pricing.InputCacheWrite)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.ID, err)
		}
		info := models.ModelInfo{
			ContextWindow:       m.ContextLength,
			SupportsImages:      slices.Contains(m.Architecture.InputModalities, "image"),
			SupportsPromptCache: m.Pricing.InputCacheRead != "",
			InputPrice:          input,
			OutputPrice:         output,
			CacheReadsPrice:     cacheRead,
			CacheWritesPrice:    cacheWrite,
			Description:         m.Description,
		}
		if m.TopProvider.MaxCompletionTokens != nil {
			info.MaxTokens = *m.TopProvider.MaxCompletionTokens
		}
		record[m.ID] = info
	}
	return record, nil
}
