// Package anthropic implements the provider handler for the native Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/providererr"
	"github.com/ncecere/model_router/internal/providers/resolver"
	"github.com/ncecere/model_router/internal/providers/streamutil"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	defaultVersion = "2023-06-01"
)

// Options configures the native Anthropic adapter.
type Options struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Version    string
	HTTPClient *http.Client
	Resolver   *resolver.Resolver
	Logger     *slog.Logger
}

type Adapter struct {
	provider string
	client   *http.Client
	baseURL  string
	apiKey   string
	version  string
	resolver *resolver.Resolver
	logger   *slog.Logger
}

func New(opts Options) (*Adapter, error) {
	if opts.Provider == "" {
		opts.Provider = "anthropic"
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, providererr.New(providererr.KindAuth, opts.Provider, "api key required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("anthropic: resolver required")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(opts.Version) == "" {
		opts.Version = defaultVersion
	}
	if opts.HTTPClient == nil {
		// No client timeout: streams stay open as long as the vendor sends.
		opts.HTTPClient = &http.Client{Transport: http.DefaultTransport}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		provider: opts.Provider,
		client:   opts.HTTPClient,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   strings.TrimSpace(opts.APIKey),
		version:  opts.Version,
		resolver: opts.Resolver,
		logger:   logger.With(slog.String("provider", opts.Provider)),
	}, nil
}

func (a *Adapter) Provider() string { return a.provider }

func (a *Adapter) CreateMessage(ctx context.Context, systemPrompt string, messages []models.Message, metadata *models.MessageMetadata) iter.Seq2[models.StreamChunk, error] {
	state := NewStreamState()
	return streamutil.Lazy(a.provider, func() (streamutil.Source[StreamEvent], error) {
		model := a.resolver.FetchModel(ctx)
		payload := BuildRequest(model, systemPrompt, messages)
		payload.Stream = true
		if metadata != nil && metadata.TaskID != "" {
			payload.Metadata = &Metadata{UserID: metadata.TaskID}
		}
		a.logger.Debug("opening message stream", slog.String("model", model.ID), slog.String("model_source", model.Source))

		resp, err := a.post(ctx, "/v1/messages", payload, "text/event-stream")
		if err != nil {
			return nil, err
		}
		return streamutil.NewSSESource[StreamEvent](resp.Body, a.logger), nil
	}, state.Extract)
}

func (a *Adapter) CompletePrompt(ctx context.Context, prompt string) (string, error) {
	model := a.resolver.FetchModel(ctx)
	payload := BuildRequest(model, "", []models.Message{models.UserText(prompt)})
	resp, err := a.post(ctx, "/v1/messages", payload, "application/json")
	if err != nil {
		return "", providererr.Normalize(a.provider, err)
	}
	defer resp.Body.Close()

	var out MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", providererr.Normalize(a.provider, fmt.Errorf("decode response: %w", err))
	}
	return out.Text(), nil
}

func (a *Adapter) GetModel() models.ResolvedModel {
	return a.resolver.Model()
}

func (a *Adapter) FetchModel(ctx context.Context) models.ResolvedModel {
	return a.resolver.FetchModel(ctx)
}

// Probe lists models to validate the key.
func (a *Adapter) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return providererr.Normalize(a.provider, err)
	}
	a.setHeaders(req, "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return providererr.Normalize(a.provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return providererr.Normalize(a.provider, decodeAPIError(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (a *Adapter) post(ctx context.Context, path string, payload MessageRequest, accept string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	a.setHeaders(req, accept)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		a.logger.Debug("anthropic request rejected", slog.Int("status", resp.StatusCode), slog.Duration("elapsed", time.Since(start)))
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

func (a *Adapter) setHeaders(req *http.Request, accept string) {
	req.Header.Set("Accept", accept)
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", a.version)
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &providererr.StatusError{StatusCode: resp.StatusCode, Code: envelope.Error.Type, Message: envelope.Error.Message}
	}
	return &providererr.StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
