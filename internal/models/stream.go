package models

const (
	ChunkText      = "text"
	ChunkReasoning = "reasoning"
	ChunkUsage     = "usage"
)

// StreamChunk is one normalized unit of a provider stream. Text and reasoning
// chunks carry Text; the single trailing usage chunk carries token counts.
type StreamChunk struct {
	Type             string  `json:"type"`
	Text             string  `json:"text,omitempty"`
	InputTokens      int64   `json:"inputTokens,omitempty"`
	OutputTokens     int64   `json:"outputTokens,omitempty"`
	CacheWriteTokens int64   `json:"cacheWriteTokens,omitempty"`
	CacheReadTokens  int64   `json:"cacheReadTokens,omitempty"`
	TotalCost        float64 `json:"totalCost,omitempty"`
	// CostReported is set when TotalCost came from the vendor rather than
	// local pricing.
	CostReported bool `json:"-"`
}

func TextChunk(text string) StreamChunk {
	return StreamChunk{Type: ChunkText, Text: text}
}

func ReasoningChunk(text string) StreamChunk {
	return StreamChunk{Type: ChunkReasoning, Text: text}
}

// Usage is the token accounting reported by a vendor for one call.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
	// Cost is set only when the vendor reports it.
	Cost *float64
}

func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

func UsageChunk(u Usage) StreamChunk {
	chunk := StreamChunk{
		Type:             ChunkUsage,
		InputTokens:      u.InputTokens,
		OutputTokens:     u.OutputTokens,
		CacheWriteTokens: u.CacheWriteTokens,
		CacheReadTokens:  u.CacheReadTokens,
	}
	if u.Cost != nil {
		chunk.TotalCost = *u.Cost
		chunk.CostReported = true
	}
	return chunk
}

func (c StreamChunk) IsUsage() bool {
	return c.Type == ChunkUsage
}
