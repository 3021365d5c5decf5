package anthropic

import (
	"strings"

	"github.com/ncecere/model_router/internal/models"
)

const maxTemperature = 1.0

// MessageRequest is the Messages API body shared with Bedrock.
type MessageRequest struct {
	Model            string    `json:"model,omitempty"`
	AnthropicVersion string    `json:"anthropic_version,omitempty"`
	System           string    `json:"system,omitempty"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	Stream           bool      `json:"stream,omitempty"`
	Metadata         *Metadata `json:"metadata,omitempty"`
}

type Metadata struct {
	UserID string `json:"user_id,omitempty"`
}

type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// BuildRequest translates a conversation into a Messages API body. max_tokens
// is always present for this format.
func BuildRequest(model models.ResolvedModel, systemPrompt string, messages []models.Message) MessageRequest {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == models.RoleAssistant {
			role = "assistant"
		}
		content := make([]Content, 0, len(msg.Content))
		for _, part := range msg.Content {
			switch part.Type {
			case models.ContentImage:
				src := &ImageSource{Type: "base64", MediaType: part.MediaType, Data: part.Data}
				if part.URL != "" {
					src = &ImageSource{Type: "url", URL: part.URL}
				}
				content = append(content, Content{Type: "image", Source: src})
			default:
				if part.Text == "" {
					continue
				}
				content = append(content, Content{Type: "text", Text: part.Text})
			}
		}
		if len(content) == 0 {
			continue
		}
		out = append(out, Message{Role: role, Content: content})
	}

	temperature := model.Params.Temperature
	if temperature > maxTemperature {
		temperature = maxTemperature
	}
	return MessageRequest{
		Model:       model.ID,
		System:      strings.TrimSpace(systemPrompt),
		Messages:    out,
		MaxTokens:   model.Params.MaxTokens,
		Temperature: temperature,
	}
}

// MessageResponse is the non-streaming Messages API reply.
type MessageResponse struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Content    []Content `json:"content"`
	StopReason string    `json:"stop_reason"`
	Usage      Usage     `json:"usage"`
}

func (r MessageResponse) Text() string {
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}
