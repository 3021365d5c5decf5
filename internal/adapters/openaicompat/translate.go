package openaicompat

import (
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/ncecere/model_router/internal/models"
)

func buildParams(model models.ResolvedModel, systemPrompt string, messages []models.Message) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model.ID),
		Messages:    buildMessages(systemPrompt, messages),
		Temperature: param.NewOpt(model.Params.Temperature),
	}
	if model.Params.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(model.Params.MaxTokens))
	}
	return params
}

// buildMessages places the system prompt first, followed by the conversation
// in order.
func buildMessages(systemPrompt string, messages []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleAssistant:
			out = append(out, openai.ChatCompletionMessageParamOfAssistant(msg.Text()))
		default:
			if !msg.HasImages() {
				out = append(out, openai.UserMessage(msg.Text()))
				continue
			}
			out = append(out, openai.UserMessage(contentParts(msg.Content)))
		}
	}
	return out
}

func contentParts(parts []models.ContentPart) []openai.ChatCompletionContentPartUnionParam {
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case models.ContentImage:
			url := part.URL
			if url == "" {
				url = fmt.Sprintf("data:%s;base64,%s", part.MediaType, part.Data)
			}
			out = append(out, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
		default:
			out = append(out, openai.TextContentPart(part.Text))
		}
	}
	return out
}
