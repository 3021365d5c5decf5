// Package openaicompat implements provider handlers for vendors that speak
// the OpenAI chat completions protocol.
package openaicompat

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/providererr"
	"github.com/ncecere/model_router/internal/providers/resolver"
	"github.com/ncecere/model_router/internal/providers/streamutil"
)

// Options configure an OpenAI-compatible adapter.
type Options struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Organization string
	Headers      map[string]string
	HTTPClient   *http.Client
	MaxRetries   int
	Resolver     *resolver.Resolver
	Logger       *slog.Logger
	Extra        []option.RequestOption
}

// Adapter is safe for concurrent use.
type Adapter struct {
	provider string
	client   *openai.Client
	resolver *resolver.Resolver
	logger   *slog.Logger
}

// New creates an adapter with the provided API key and base URL.
func New(opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, providererr.New(providererr.KindAuth, opts.Provider, "api key required")
	}
	requestOpts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(opts.APIKey))}
	if strings.TrimSpace(opts.BaseURL) != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")))
	}
	if strings.TrimSpace(opts.Organization) != "" {
		requestOpts = append(requestOpts, option.WithOrganization(strings.TrimSpace(opts.Organization)))
	}
	return newAdapter(opts, requestOpts)
}

func newAdapter(opts Options, requestOpts []option.RequestOption) (*Adapter, error) {
	if opts.Resolver == nil {
		return nil, errors.New("openaicompat: resolver required")
	}
	if opts.HTTPClient != nil {
		requestOpts = append(requestOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	for k, v := range opts.Headers {
		requestOpts = append(requestOpts, option.WithHeader(k, v))
	}
	requestOpts = append(requestOpts, option.WithMaxRetries(max(opts.MaxRetries, 0)))
	requestOpts = append(requestOpts, opts.Extra...)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := openai.NewClient(requestOpts...)
	return &Adapter{
		provider: opts.Provider,
		client:   &client,
		resolver: opts.Resolver,
		logger:   logger.With(slog.String("provider", opts.Provider)),
	}, nil
}

func (a *Adapter) Provider() string { return a.provider }

// CreateMessage streams a chat completion. The request is issued when the
// caller starts iterating.
func (a *Adapter) CreateMessage(ctx context.Context, systemPrompt string, messages []models.Message, metadata *models.MessageMetadata) iter.Seq2[models.StreamChunk, error] {
	return streamutil.Lazy(a.provider, func() (streamutil.Source[openai.ChatCompletionChunk], error) {
		model := a.resolver.FetchModel(ctx)
		params := buildParams(model, systemPrompt, messages)
		params.StreamOptions.IncludeUsage = param.NewOpt(true)
		a.logger.Debug("opening chat stream",
			slog.String("model", model.ID),
			slog.String("model_source", model.Source),
			slog.Int("messages", len(messages)),
		)
		return a.client.Chat.Completions.NewStreaming(ctx, params, requestOptions(metadata)...), nil
	}, extractChunk)
}

// CompletePrompt runs a single non-streaming completion. A response without
// choices yields an empty string.
func (a *Adapter) CompletePrompt(ctx context.Context, prompt string) (string, error) {
	model := a.resolver.FetchModel(ctx)
	params := buildParams(model, "", []models.Message{models.UserText(prompt)})
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", providererr.Normalize(a.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *Adapter) GetModel() models.ResolvedModel {
	return a.resolver.Model()
}

func (a *Adapter) FetchModel(ctx context.Context) models.ResolvedModel {
	return a.resolver.FetchModel(ctx)
}

// Probe uses the models endpoint as a lightweight readiness check.
func (a *Adapter) Probe(ctx context.Context) error {
	if _, err := a.client.Models.List(ctx); err != nil {
		return providererr.Normalize(a.provider, err)
	}
	return nil
}

func requestOptions(metadata *models.MessageMetadata) []option.RequestOption {
	if metadata == nil || metadata.TaskID == "" {
		return nil
	}
	return []option.RequestOption{option.WithHeader("X-Task-Id", metadata.TaskID)}
}
