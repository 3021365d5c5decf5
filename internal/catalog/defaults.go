package catalog

import "github.com/ncecere/model_router/internal/models"

// Default is the well-known fallback model of a provider.
type Default struct {
	ModelID string
	Info    models.ModelInfo
}

var defaults = map[string]Default{
	"deepinfra": {
		ModelID: "meta-llama/Meta-Llama-3.1-70B-Instruct",
		Info: models.ModelInfo{
			MaxTokens:           8192,
			ContextWindow:       128_000,
			SupportsImages:      true,
			SupportsComputerUse: false,
			SupportsPromptCache: false,
			InputPrice:          0.52,
			OutputPrice:         0.75,
			Description: "Meta Llama 3.1 70B Instruct is a powerful large language model with 70 billion parameters, " +
				"optimized for instruction following and conversational AI tasks. It offers excellent performance " +
				"across a wide range of applications including text generation, reasoning, and code assistance.",
		},
	},
	"openrouter": {
		ModelID: "anthropic/claude-sonnet-4",
		Info: models.ModelInfo{
			MaxTokens:           8192,
			ContextWindow:       200_000,
			SupportsImages:      true,
			SupportsPromptCache: true,
			SupportsComputerUse: true,
			InputPrice:          3.0,
			OutputPrice:         15.0,
			CacheWritesPrice:    3.75,
			CacheReadsPrice:     0.3,
		},
	},
	"openai-compatible": {
		Info: models.ModelInfo{
			ContextWindow: 128_000,
		},
	},
	"azure-openai": {
		Info: models.ModelInfo{
			MaxTokens:      16_384,
			ContextWindow:  128_000,
			SupportsImages: true,
		},
	},
	"vertex": {
		ModelID: vertexModels[0].id,
		Info:    vertexModels[0].info,
	},
	"anthropic": {
		ModelID: anthropicModels[0].id,
		Info:    anthropicModels[0].info,
	},
	"bedrock": {
		ModelID: bedrockModels[0].id,
		Info:    bedrockModels[0].info,
	},
}

// DefaultFor returns the static fallback for provider. The zero Default is
// returned for unknown providers.
func DefaultFor(provider string) (Default, bool) {
	def, ok := defaults[NormalizeProviderSlug(provider)]
	return def, ok
}

type staticModel struct {
	id   string
	info models.ModelInfo
}

var anthropicModels = []staticModel{
	{id: "claude-sonnet-4-20250514", info: models.ModelInfo{
		MaxTokens: 64_000, ContextWindow: 200_000, SupportsImages: true, SupportsPromptCache: true, SupportsComputerUse: true,
		InputPrice: 3.0, OutputPrice: 15.0, CacheWritesPrice: 3.75, CacheReadsPrice: 0.3,
	}},
	{id: "claude-opus-4-20250514", info: models.ModelInfo{
		MaxTokens: 32_000, ContextWindow: 200_000, SupportsImages: true, SupportsPromptCache: true, SupportsComputerUse: true,
		InputPrice: 15.0, OutputPrice: 75.0, CacheWritesPrice: 18.75, CacheReadsPrice: 1.5,
	}},
	{id: "claude-3-5-haiku-20241022", info: models.ModelInfo{
		MaxTokens: 8192, ContextWindow: 200_000, SupportsPromptCache: true,
		InputPrice: 0.8, OutputPrice: 4.0, CacheWritesPrice: 1.0, CacheReadsPrice: 0.08,
	}},
}

var bedrockModels = []staticModel{
	{id: "anthropic.claude-sonnet-4-20250514-v1:0", info: models.ModelInfo{
		MaxTokens: 8192, ContextWindow: 200_000, SupportsImages: true, SupportsPromptCache: true, SupportsComputerUse: true,
		InputPrice: 3.0, OutputPrice: 15.0, CacheWritesPrice: 3.75, CacheReadsPrice: 0.3,
	}},
	{id: "anthropic.claude-3-5-sonnet-20241022-v2:0", info: models.ModelInfo{
		MaxTokens: 8192, ContextWindow: 200_000, SupportsImages: true, SupportsComputerUse: true,
		InputPrice: 3.0, OutputPrice: 15.0,
	}},
	{id: "anthropic.claude-3-5-haiku-20241022-v1:0", info: models.ModelInfo{
		MaxTokens: 8192, ContextWindow: 200_000, SupportsPromptCache: true,
		InputPrice: 0.8, OutputPrice: 4.0, CacheWritesPrice: 1.0, CacheReadsPrice: 0.08,
	}},
}

var vertexModels = []staticModel{
	{id: "google/gemini-2.5-flash", info: models.ModelInfo{
		MaxTokens: 65_535, ContextWindow: 1_048_576, SupportsImages: true, SupportsPromptCache: true,
		InputPrice: 0.3, OutputPrice: 2.5, CacheReadsPrice: 0.075,
	}},
	{id: "google/gemini-2.5-pro", info: models.ModelInfo{
		MaxTokens: 65_535, ContextWindow: 1_048_576, SupportsImages: true, SupportsPromptCache: true,
		InputPrice: 2.5, OutputPrice: 15.0, CacheReadsPrice: 0.625,
	}},
	{id: "google/gemini-2.0-flash-001", info: models.ModelInfo{
		MaxTokens: 8192, ContextWindow: 1_048_576, SupportsImages: true,
		InputPrice: 0.15, OutputPrice: 0.6,
	}},
}

// StaticModels returns the built-in model table for providers that do not
// expose a live listing. The result is a fresh copy.
func StaticModels(provider string) models.ModelRecord {
	var table []staticModel
	switch NormalizeProviderSlug(provider) {
	case "anthropic":
		table = anthropicModels
	case "bedrock":
		table = bedrockModels
	case "vertex":
		table = vertexModels
	}
	record := make(models.ModelRecord, len(table))
	for _, m := range table {
		record[m.id] = m.info
	}
	return record
}
