// Package providererr normalizes vendor failures into a small set of kinds
// that carry the originating provider.
package providererr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/smithy-go"
	"github.com/openai/openai-go/v3"
)

type Kind string

const (
	KindTransport       Kind = "transport"
	KindAuth            Kind = "auth"
	KindRateLimit       Kind = "rate_limit"
	KindModelResolution Kind = "model_resolution"
)

var (
	ErrTransport       = errors.New("provider transport error")
	ErrAuth            = errors.New("provider authentication error")
	ErrRateLimit       = errors.New("provider rate limited")
	ErrModelResolution = errors.New("model resolution error")
)

// Error is the normalized failure surfaced by every provider handler.
// Vendor error values are flattened into Message; only context errors stay
// reachable through Unwrap.
type Error struct {
	Kind       Kind
	Provider   string
	Message    string
	StatusCode int
	cause      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s API error: %s", DisplayName(e.Provider), e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrRateLimit:
		return e.Kind == KindRateLimit
	case ErrModelResolution:
		return e.Kind == KindModelResolution
	}
	return false
}

// New builds a normalized error directly.
func New(kind Kind, provider, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// StatusError is returned by hand-rolled HTTP transports for non-2xx replies.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Normalize converts any error raised while talking to provider into *Error.
// It returns nil for a nil error and leaves already-normalized errors intact.
func Normalize(provider string, err error) error {
	if err == nil {
		return nil
	}
	var normalized *Error
	if errors.As(err, &normalized) {
		if normalized.Provider == "" {
			clone := *normalized
			clone.Provider = provider
			return &clone
		}
		return normalized
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTransport, Provider: provider, Message: err.Error(), cause: contextCause(err)}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &Error{
			Kind:       kindForStatus(apiErr.StatusCode, apiErr.Code),
			Provider:   provider,
			Message:    msg,
			StatusCode: apiErr.StatusCode,
		}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		msg := strings.TrimSpace(statusErr.Message)
		if msg == "" {
			msg = http.StatusText(statusErr.StatusCode)
		}
		return &Error{
			Kind:       kindForStatus(statusErr.StatusCode, statusErr.Code),
			Provider:   provider,
			Message:    msg,
			StatusCode: statusErr.StatusCode,
		}
	}

	var awsErr smithy.APIError
	if errors.As(err, &awsErr) {
		status := 0
		var withStatus interface{ HTTPStatusCode() int }
		if errors.As(err, &withStatus) {
			status = withStatus.HTTPStatusCode()
		}
		kind := kindForAWSCode(awsErr.ErrorCode())
		if kind == KindTransport {
			kind = kindForStatus(status, "")
		}
		msg := strings.TrimSpace(awsErr.ErrorMessage())
		if msg == "" {
			msg = awsErr.ErrorCode()
		}
		return &Error{Kind: kind, Provider: provider, Message: msg, StatusCode: status}
	}

	return &Error{Kind: KindTransport, Provider: provider, Message: err.Error()}
}

func contextCause(err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return context.DeadlineExceeded
}

func kindForStatus(status int, code string) Kind {
	switch strings.ToLower(code) {
	case "rate_limit_exceeded", "rate_limit_error", "insufficient_quota", "overloaded_error":
		return KindRateLimit
	case "invalid_api_key", "authentication_error", "permission_error":
		return KindAuth
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests, statusOverloaded:
		return KindRateLimit
	}
	return KindTransport
}

// statusOverloaded is Anthropic's non-standard "overloaded, back off" status.
const statusOverloaded = 529

func kindForAWSCode(code string) Kind {
	switch code {
	case "ThrottlingException", "ServiceQuotaExceededException", "TooManyRequestsException":
		return KindRateLimit
	case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException",
		"InvalidSignatureException", "IncompleteSignature", "MissingAuthenticationToken":
		return KindAuth
	}
	return KindTransport
}

// KindOf reports the kind of a normalized error, or "" for anything else.
func KindOf(err error) Kind {
	var normalized *Error
	if errors.As(err, &normalized) {
		return normalized.Kind
	}
	return ""
}

func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

// Retryable reports whether another attempt, possibly on another provider,
// could succeed.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimit, KindTransport:
		return !errors.Is(err, context.Canceled)
	}
	return false
}

var (
	namesMu      sync.RWMutex
	displayNames = map[string]string{}
)

// RegisterDisplayName sets the human readable name used in error messages.
func RegisterDisplayName(provider, display string) {
	if provider == "" || display == "" {
		return
	}
	namesMu.Lock()
	displayNames[provider] = display
	namesMu.Unlock()
}

// DisplayName returns the registered name for provider, falling back to the
// provider key itself.
func DisplayName(provider string) string {
	namesMu.RLock()
	display, ok := displayNames[provider]
	namesMu.RUnlock()
	if ok {
		return display
	}
	if provider == "" {
		return "Provider"
	}
	return provider
}
