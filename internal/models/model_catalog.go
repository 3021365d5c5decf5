package models

import "maps"

// ModelInfo describes the capabilities and pricing of one model. Prices are
// USD per million tokens.
type ModelInfo struct {
	MaxTokens           int     `json:"maxTokens,omitempty" mapstructure:"max_tokens"`
	ContextWindow       int     `json:"contextWindow" mapstructure:"context_window"`
	SupportsImages      bool    `json:"supportsImages" mapstructure:"supports_images"`
	SupportsPromptCache bool    `json:"supportsPromptCache" mapstructure:"supports_prompt_cache"`
	SupportsComputerUse bool    `json:"supportsComputerUse,omitempty" mapstructure:"supports_computer_use"`
	InputPrice          float64 `json:"inputPrice,omitempty" mapstructure:"input_price"`
	OutputPrice         float64 `json:"outputPrice,omitempty" mapstructure:"output_price"`
	CacheWritesPrice    float64 `json:"cacheWritesPrice,omitempty" mapstructure:"cache_writes_price"`
	CacheReadsPrice     float64 `json:"cacheReadsPrice,omitempty" mapstructure:"cache_reads_price"`
	Description         string  `json:"description,omitempty" mapstructure:"description"`
}

// ModelRecord maps model ids to their descriptors.
type ModelRecord map[string]ModelInfo

func (r ModelRecord) Clone() ModelRecord {
	if r == nil {
		return ModelRecord{}
	}
	return maps.Clone(r)
}

func (r ModelRecord) Lookup(id string) (ModelInfo, bool) {
	info, ok := r[id]
	return info, ok
}

const (
	SourceCatalog = "catalog"
	SourceDefault = "default"
)

// Params are the effective request parameters for a resolved model.
// MaxTokens of 0 means the field is omitted from the request.
type Params struct {
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ResolvedModel struct {
	ID     string    `json:"id"`
	Info   ModelInfo `json:"info"`
	Params Params    `json:"params"`
	Source string    `json:"source"`
}
