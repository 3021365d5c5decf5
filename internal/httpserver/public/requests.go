package public

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ncecere/model_router/internal/models"
)

type messageRequest struct {
	System   string                  `json:"system"`
	Messages []messagePayload        `json:"messages"`
	Metadata *models.MessageMetadata `json:"metadata"`
}

// messagePayload accepts content either as a plain string or as a list of
// content parts.
type messagePayload struct {
	Role    string         `json:"role"`
	Content messageContent `json:"content"`
}

type messageContent []models.ContentPart

func (m *messageContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*m = messageContent{models.TextPart(text)}
		return nil
	}
	var parts []models.ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or a list of parts: %w", err)
	}
	*m = parts
	return nil
}

func (r messageRequest) toMessages() ([]models.Message, error) {
	out := make([]models.Message, 0, len(r.Messages))
	for idx, msg := range r.Messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		switch role {
		case "":
			role = models.RoleUser
		case models.RoleUser, models.RoleAssistant:
		default:
			return nil, fmt.Errorf("messages[%d]: unsupported role %q", idx, msg.Role)
		}
		for _, part := range msg.Content {
			switch part.Type {
			case models.ContentText:
			case models.ContentImage:
				if part.Data == "" && part.URL == "" {
					return nil, fmt.Errorf("messages[%d]: image part requires data or url", idx)
				}
			default:
				return nil, fmt.Errorf("messages[%d]: unsupported content type %q", idx, part.Type)
			}
		}
		out = append(out, models.Message{Role: role, Content: []models.ContentPart(msg.Content)})
	}
	return out, nil
}

type completeRequest struct {
	Prompt string `json:"prompt"`
}

type completeResponse struct {
	Provider string `json:"provider"`
	Text     string `json:"text"`
}

type providerSummary struct {
	Provider    string               `json:"provider"`
	DisplayName string               `json:"display_name"`
	Model       models.ResolvedModel `json:"model"`
	CircuitOpen bool                 `json:"circuit_open"`
	Healthy     *bool                `json:"healthy,omitempty"`
	HealthError string               `json:"health_error,omitempty"`
}
