package models

import "strings"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	ContentText  = "text"
	ContentImage = "image"
)

// ContentPart is a single block of message content. Image parts carry either
// base64 Data with a MediaType or a remote URL.
type ContentPart struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// MessageMetadata is opaque per-call context handed to adapters.
type MessageMetadata struct {
	TaskID string `json:"task_id,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentText, Text: text}
}

func ImagePart(mediaType, data string) ContentPart {
	return ContentPart{Type: ContentImage, MediaType: mediaType, Data: data}
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	if len(m.Content) == 1 {
		return m.Content[0].Text
	}
	var b strings.Builder
	for _, part := range m.Content {
		if part.Type != ContentText || part.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// HasImages reports whether any part is an image.
func (m Message) HasImages() bool {
	for _, part := range m.Content {
		if part.Type == ContentImage {
			return true
		}
	}
	return false
}
