package anthropic

import (
	"net/http"

	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/providererr"
	"github.com/ncecere/model_router/internal/providers/streamutil"
)

type Usage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// StreamEvent is one Messages API stream event.
type StreamEvent struct {
	Type    string         `json:"type"`
	Index   int            `json:"index"`
	Message *StreamMessage `json:"message,omitempty"`
	Delta   *StreamDelta   `json:"delta,omitempty"`
	Usage   *Usage         `json:"usage,omitempty"`
	Error   *APIError      `json:"error,omitempty"`
}

type StreamMessage struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

type StreamDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Thinking   string `json:"thinking"`
	StopReason string `json:"stop_reason"`
}

type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StreamState folds the usage spread across message_start and message_delta
// into one running total. One state serves one stream.
type StreamState struct {
	usage models.Usage
}

func NewStreamState() *StreamState {
	return &StreamState{}
}

func (s *StreamState) Extract(ev StreamEvent) streamutil.Frame {
	switch ev.Type {
	case "message_start":
		if ev.Message == nil {
			return streamutil.Frame{}
		}
		u := ev.Message.Usage
		s.usage.InputTokens = u.InputTokens
		s.usage.OutputTokens = u.OutputTokens
		s.usage.CacheWriteTokens = u.CacheCreationInputTokens
		s.usage.CacheReadTokens = u.CacheReadInputTokens
		return s.usageFrame()
	case "content_block_delta":
		if ev.Delta == nil {
			return streamutil.Frame{}
		}
		switch ev.Delta.Type {
		case "thinking_delta":
			return streamutil.Frame{Reasoning: ev.Delta.Thinking}
		default:
			return streamutil.Frame{Text: ev.Delta.Text}
		}
	case "message_delta":
		if ev.Usage == nil {
			return streamutil.Frame{}
		}
		if ev.Usage.InputTokens > 0 {
			s.usage.InputTokens = ev.Usage.InputTokens
		}
		s.usage.OutputTokens = ev.Usage.OutputTokens
		return s.usageFrame()
	case "error":
		return streamutil.Frame{Err: errorFromEvent(ev.Error)}
	}
	return streamutil.Frame{}
}

func (s *StreamState) usageFrame() streamutil.Frame {
	usage := s.usage
	return streamutil.Frame{Usage: &usage}
}

func errorFromEvent(apiErr *APIError) error {
	if apiErr == nil {
		return &providererr.StatusError{StatusCode: http.StatusInternalServerError, Message: "stream error"}
	}
	return &providererr.StatusError{
		StatusCode: statusForErrorType(apiErr.Type),
		Code:       apiErr.Type,
		Message:    apiErr.Message,
	}
}

func statusForErrorType(kind string) int {
	switch kind {
	case "authentication_error":
		return http.StatusUnauthorized
	case "permission_error":
		return http.StatusForbidden
	case "rate_limit_error":
		return http.StatusTooManyRequests
	case "overloaded_error":
		return 529
	case "invalid_request_error":
		return http.StatusBadRequest
	case "not_found_error":
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
