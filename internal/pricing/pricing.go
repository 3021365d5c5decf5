// Package pricing computes request cost from token usage and per-million
// token prices.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ncecere/model_router/internal/models"
)

var million = decimal.NewFromInt(1_000_000)

// Cost returns the USD cost of usage under info's prices.
func Cost(info models.ModelInfo, usage models.Usage) float64 {
	total := decimal.NewFromInt(usage.InputTokens).Mul(decimal.NewFromFloat(info.InputPrice)).
		Add(decimal.NewFromInt(usage.OutputTokens).Mul(decimal.NewFromFloat(info.OutputPrice))).
		Add(decimal.NewFromInt(usage.CacheWriteTokens).Mul(decimal.NewFromFloat(info.CacheWritesPrice))).
		Add(decimal.NewFromInt(usage.CacheReadTokens).Mul(decimal.NewFromFloat(info.CacheReadsPrice)))
	cost, _ := total.Div(million).Round(10).Float64()
	return cost
}

// ChunkCost prices a usage chunk.
func ChunkCost(info models.ModelInfo, chunk models.StreamChunk) float64 {
	return Cost(info, models.Usage{
		InputTokens:      chunk.InputTokens,
		OutputTokens:     chunk.OutputTokens,
		CacheWriteTokens: chunk.CacheWriteTokens,
		CacheReadTokens:  chunk.CacheReadTokens,
	})
}

// PerTokenToPerMillion converts a per-token USD price string, as published by
// OpenRouter, to USD per million tokens. An empty string is zero.
func PerTokenToPerMillion(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	v, _ := d.Mul(million).Round(6).Float64()
	return v, nil
}
