package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/model_router/internal/providers/providererr"
)

// WriteError standardizes JSON error responses.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// ErrorBody is the JSON shape of a provider failure.
type ErrorBody struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// ProviderError describes err for clients and picks the HTTP status for its kind.
func ProviderError(err error) (int, ErrorBody) {
	body := ErrorBody{Error: err.Error()}
	var normalized *providererr.Error
	if errors.As(err, &normalized) {
		body.Kind = string(normalized.Kind)
		body.Provider = normalized.Provider
	}
	return StatusFor(err), body
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case providererr.IsAuth(err):
		return fiber.StatusUnauthorized
	case providererr.IsRateLimit(err):
		return fiber.StatusTooManyRequests
	case errors.Is(err, providererr.ErrTransport):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// WriteProviderError renders a normalized provider error.
func WriteProviderError(c *fiber.Ctx, err error) error {
	status, body := ProviderError(err)
	return c.Status(status).JSON(body)
}
