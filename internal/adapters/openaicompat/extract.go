package openaicompat

import (
	"encoding/json"
	"strconv"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/respjson"

	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/streamutil"
)

var reasoningFields = []string{"reasoning_content", "reasoning"}

func extractChunk(chunk openai.ChatCompletionChunk) streamutil.Frame {
	var frame streamutil.Frame
	if len(chunk.Choices) > 0 {
		delta := chunk.Choices[0].Delta
		frame.Text = delta.Content
		frame.Reasoning = reasoningText(delta.JSON.ExtraFields)
	}
	if chunk.JSON.Usage.Valid() {
		frame.Usage = convertUsage(chunk.Usage)
	}
	return frame
}

// convertUsage reports cached prompt tokens separately: prompt_tokens
// includes them, so InputTokens carries only the uncached remainder.
func convertUsage(u openai.CompletionUsage) *models.Usage {
	cached := min(max(u.PromptTokensDetails.CachedTokens, 0), u.PromptTokens)
	usage := &models.Usage{
		InputTokens:     u.PromptTokens - cached,
		OutputTokens:    u.CompletionTokens,
		CacheReadTokens: cached,
	}
	if raw, ok := extraRaw(u.JSON.ExtraFields, "cost"); ok {
		if cost, err := strconv.ParseFloat(raw, 64); err == nil {
			usage.Cost = &cost
		}
	}
	return usage
}

// extraRaw returns the raw JSON of an undeclared field. The SDK never marks
// extra fields valid, so presence is judged from the raw value.
func extraRaw(extra map[string]respjson.Field, key string) (string, bool) {
	field, ok := extra[key]
	if !ok {
		return "", false
	}
	raw := field.Raw()
	if raw == "" || raw == "null" {
		return "", false
	}
	return raw, true
}

func reasoningText(extra map[string]respjson.Field) string {
	for _, key := range reasoningFields {
		raw, ok := extraRaw(extra, key)
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal([]byte(raw), &text); err == nil && text != "" {
			return text
		}
	}
	return ""
}
