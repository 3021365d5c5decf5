// Package bedrock implements the provider handler for Anthropic models served
// through Amazon Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/ncecere/model_router/internal/adapters/anthropic"
	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/providererr"
	"github.com/ncecere/model_router/internal/providers/resolver"
	"github.com/ncecere/model_router/internal/providers/streamutil"
)

const DefaultAnthropicVersion = "bedrock-2023-05-31"

// Options controls how the Bedrock adapter is initialised.
type Options struct {
	Provider        string
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	AnthropicVersion string

	Resolver *resolver.Resolver
	Logger   *slog.Logger
}

type runtimeClient interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, in *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

type identityClient interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// eventStream is the part of the SDK event stream the adapter reads.
type eventStream interface {
	Events() <-chan types.ResponseStream
	Err() error
	Close() error
}

type Adapter struct {
	provider string
	client   runtimeClient
	identity identityClient
	version  string
	resolver *resolver.Resolver
	logger   *slog.Logger

	openStream func(ctx context.Context, in *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error)
}

// New creates a Bedrock adapter using the provided credentials/region.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if opts.Provider == "" {
		opts.Provider = "bedrock"
	}
	if opts.Region == "" {
		return nil, providererr.New(providererr.KindAuth, opts.Provider, "aws region required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		staticProvider := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
		loadOpts = append(loadOpts, config.WithCredentialsProvider(staticProvider))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, providererr.New(providererr.KindAuth, opts.Provider, "load aws config: %v", err)
	}
	return newAdapter(opts, bedrockruntime.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg))
}

func newAdapter(opts Options, client runtimeClient, identity identityClient) (*Adapter, error) {
	if opts.Resolver == nil {
		return nil, errors.New("bedrock: resolver required")
	}
	if opts.AnthropicVersion == "" {
		opts.AnthropicVersion = DefaultAnthropicVersion
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		provider: opts.Provider,
		client:   client,
		identity: identity,
		version:  opts.AnthropicVersion,
		resolver: opts.Resolver,
		logger:   logger.With(slog.String("provider", opts.Provider)),
	}
	a.openStream = a.invokeStream
	return a, nil
}

func (a *Adapter) Provider() string { return a.provider }

func (a *Adapter) CreateMessage(ctx context.Context, systemPrompt string, messages []models.Message, _ *models.MessageMetadata) iter.Seq2[models.StreamChunk, error] {
	state := anthropic.NewStreamState()
	return streamutil.Lazy(a.provider, func() (streamutil.Source[types.ResponseStream], error) {
		model := a.resolver.FetchModel(ctx)
		body, err := a.body(model, systemPrompt, messages)
		if err != nil {
			return nil, err
		}
		stream, err := a.openStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
			ModelId:     aws.String(model.ID),
			Body:        body,
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
		})
		if err != nil {
			return nil, err
		}
		return streamutil.NewChannelSource(ctx, stream.Events(), stream.Err, stream.Close), nil
	}, a.extractor(state))
}

func (a *Adapter) CompletePrompt(ctx context.Context, prompt string) (string, error) {
	model := a.resolver.FetchModel(ctx)
	body, err := a.body(model, "", []models.Message{models.UserText(prompt)})
	if err != nil {
		return "", providererr.Normalize(a.provider, err)
	}
	out, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model.ID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", providererr.Normalize(a.provider, err)
	}
	var parsed anthropic.MessageResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", providererr.Normalize(a.provider, fmt.Errorf("decode bedrock response: %w", err))
	}
	return parsed.Text(), nil
}

func (a *Adapter) GetModel() models.ResolvedModel {
	return a.resolver.Model()
}

func (a *Adapter) FetchModel(ctx context.Context) models.ResolvedModel {
	return a.resolver.FetchModel(ctx)
}

// Probe verifies the credentials without running inference.
func (a *Adapter) Probe(ctx context.Context) error {
	if a.identity == nil {
		return providererr.New(providererr.KindAuth, a.provider, "sts client not initialised")
	}
	if _, err := a.identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return providererr.Normalize(a.provider, err)
	}
	return nil
}

func (a *Adapter) body(model models.ResolvedModel, systemPrompt string, messages []models.Message) ([]byte, error) {
	req := anthropic.BuildRequest(model, systemPrompt, messages)
	req.Model = ""
	req.AnthropicVersion = a.version
	return json.Marshal(req)
}

func (a *Adapter) invokeStream(ctx context.Context, in *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error) {
	resp, err := a.client.InvokeModelWithResponseStream(ctx, in)
	if err != nil {
		return nil, err
	}
	stream := resp.GetStream()
	if stream == nil {
		return nil, errors.New("bedrock stream missing")
	}
	return stream, nil
}

func (a *Adapter) extractor(state *anthropic.StreamState) streamutil.ExtractFunc[types.ResponseStream] {
	return func(ev types.ResponseStream) streamutil.Frame {
		chunk, ok := ev.(*types.ResponseStreamMemberChunk)
		if !ok || chunk == nil {
			return streamutil.Frame{}
		}
		var payload anthropic.StreamEvent
		if err := json.Unmarshal(chunk.Value.Bytes, &payload); err != nil {
			a.logger.Debug("skipping malformed bedrock chunk", slog.String("error", err.Error()))
			return streamutil.Frame{}
		}
		return state.Extract(payload)
	}
}
