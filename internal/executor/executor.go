// Package executor runs requests against routed providers with fallback,
// local rate limits and cost accounting.
package executor

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"github.com/ncecere/model_router/internal/limits"
	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/pricing"
	"github.com/ncecere/model_router/internal/providers"
	"github.com/ncecere/model_router/internal/providers/providererr"
	"github.com/ncecere/model_router/internal/router"
)

type Options struct {
	Engine  *router.Engine
	Limiter *limits.RateLimiter
	Limits  limits.LimitConfig
	Logger  *slog.Logger
}

// Executor encapsulates provider execution so the HTTP gateway and the CLI
// share one code path.
type Executor struct {
	engine  *router.Engine
	limiter *limits.RateLimiter
	limits  limits.LimitConfig
	logger  *slog.Logger
}

func New(opts Options) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{engine: opts.Engine, limiter: opts.Limiter, limits: opts.Limits, logger: logger}
}

// Stream sends the conversation to provider, falling back to configured
// alternates when a route fails before producing its first chunk. Once a
// chunk has been yielded the stream is bound to that route.
func (e *Executor) Stream(ctx context.Context, provider, systemPrompt string, messages []models.Message, metadata *models.MessageMetadata) iter.Seq2[models.StreamChunk, error] {
	return func(yield func(models.StreamChunk, error) bool) {
		routes := e.engine.SelectRoutes(provider)
		if len(routes) == 0 {
			yield(models.StreamChunk{}, noRoute(provider))
			return
		}

		var lastErr error
		for idx, route := range routes {
			started, stopped, err := e.streamRoute(ctx, route, systemPrompt, messages, metadata, yield)
			if stopped {
				return
			}
			if err == nil {
				e.engine.ReportSuccess(route.Provider)
				return
			}
			e.engine.ReportFailure(route.Provider, err)
			if started || ctx.Err() != nil || idx == len(routes)-1 {
				yield(models.StreamChunk{}, err)
				return
			}
			e.logger.Warn("provider stream failed before first chunk; falling back",
				slog.String("provider", route.Provider),
				slog.String("next", routes[idx+1].Provider),
				slog.String("error", err.Error()),
			)
			lastErr = err
		}
		yield(models.StreamChunk{}, lastErr)
	}
}

// streamRoute forwards one route's stream. stopped is true when the consumer
// stopped iterating.
func (e *Executor) streamRoute(ctx context.Context, route providers.Route, systemPrompt string, messages []models.Message, metadata *models.MessageMetadata, yield func(models.StreamChunk, error) bool) (started, stopped bool, err error) {
	release, err := e.acquire(ctx, route.Provider)
	if err != nil {
		return false, false, err
	}
	defer release()

	for chunk, err := range route.Handler.CreateMessage(ctx, systemPrompt, messages, metadata) {
		if err != nil {
			return started, false, err
		}
		if chunk.IsUsage() {
			chunk = e.account(ctx, route, chunk)
		}
		started = true
		if !yield(chunk, nil) {
			return true, true, nil
		}
	}
	return started, false, nil
}

// CompleteResult is the outcome of a single-shot completion.
type CompleteResult struct {
	Text     string
	Provider string
}

// Complete runs a single-shot prompt with the same fallback policy as Stream.
func (e *Executor) Complete(ctx context.Context, provider, prompt string) (CompleteResult, error) {
	routes := e.engine.SelectRoutes(provider)
	if len(routes) == 0 {
		return CompleteResult{}, noRoute(provider)
	}

	var lastErr error
	for _, route := range routes {
		text, err := e.completeRoute(ctx, route, prompt)
		if err == nil {
			e.engine.ReportSuccess(route.Provider)
			return CompleteResult{Text: text, Provider: route.Provider}, nil
		}
		e.engine.ReportFailure(route.Provider, err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		e.logger.Warn("provider completion failed",
			slog.String("provider", route.Provider),
			slog.String("error", err.Error()),
		)
	}
	return CompleteResult{}, lastErr
}

func (e *Executor) completeRoute(ctx context.Context, route providers.Route, prompt string) (string, error) {
	release, err := e.acquire(ctx, route.Provider)
	if err != nil {
		return "", err
	}
	defer release()
	return route.Handler.CompletePrompt(ctx, prompt)
}

func (e *Executor) acquire(ctx context.Context, provider string) (func(), error) {
	exhausted, err := e.limiter.TokensExhausted(ctx, provider, e.limits)
	if err != nil {
		e.logger.Warn("token budget check failed", slog.String("provider", provider), slog.String("error", err.Error()))
	}
	if exhausted {
		return func() {}, providererr.New(providererr.KindRateLimit, provider, "token rate limit exceeded")
	}
	release, err := e.limiter.Acquire(ctx, provider, e.limits)
	switch {
	case errors.Is(err, limits.ErrLimitExceeded):
		return release, providererr.New(providererr.KindRateLimit, provider, "request rate limit exceeded")
	case err != nil:
		return release, providererr.Normalize(provider, err)
	}
	return release, nil
}

// account fills the cost when the vendor did not report one and charges the
// tokens to the provider's budget.
func (e *Executor) account(ctx context.Context, route providers.Route, chunk models.StreamChunk) models.StreamChunk {
	if !chunk.CostReported {
		chunk.TotalCost = pricing.ChunkCost(route.Model().Info, chunk)
	}
	tokens := int(chunk.InputTokens + chunk.OutputTokens)
	if err := e.limiter.TokenAllowance(ctx, route.Provider, tokens, e.limits); err != nil && !errors.Is(err, limits.ErrLimitExceeded) {
		e.logger.Warn("token accounting failed", slog.String("provider", route.Provider), slog.String("error", err.Error()))
	}
	return chunk
}

func noRoute(provider string) error {
	return providererr.New(providererr.KindTransport, provider, "no healthy route for provider %q", provider)
}
