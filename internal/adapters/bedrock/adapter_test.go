package bedrock

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_router/internal/catalog"
	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/fixtures"
	"github.com/ncecere/model_router/internal/providers/modelparams"
	"github.com/ncecere/model_router/internal/providers/providererr"
	"github.com/ncecere/model_router/internal/providers/resolver"
	"github.com/ncecere/model_router/internal/providers/streamutil"
)

type fakeRuntime struct {
	invokeBody []byte
	invokeErr  error
	lastInput  *bedrockruntime.InvokeModelInput
}

func (f *fakeRuntime) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastInput = in
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.invokeBody}, nil
}

func (f *fakeRuntime) InvokeModelWithResponseStream(context.Context, *bedrockruntime.InvokeModelWithResponseStreamInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error) {
	panic("stream opened through openStream in tests")
}

type fakeIdentity struct{ err error }

func (f fakeIdentity) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{}, nil
}

type fakeStream struct {
	events chan types.ResponseStream
	err    error
	closed bool
}

func newFakeStream(payloads [][]byte, err error) *fakeStream {
	ch := make(chan types.ResponseStream, len(payloads))
	for _, p := range payloads {
		ch <- &types.ResponseStreamMemberChunk{Value: types.PayloadPart{Bytes: p}}
	}
	close(ch)
	return &fakeStream{events: ch, err: err}
}

func (s *fakeStream) Events() <-chan types.ResponseStream { return s.events }
func (s *fakeStream) Err() error                          { return s.err }
func (s *fakeStream) Close() error                        { s.closed = true; return nil }

// ssePayloads pulls the data lines out of an Anthropic SSE fixture; Bedrock
// delivers the same JSON events as event-stream chunks.
func ssePayloads(t *testing.T, name string) [][]byte {
	t.Helper()
	var out [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(fixtures.MustRead(name)))
	for scanner.Scan() {
		line := scanner.Text()
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			out = append(out, []byte(data))
		}
	}
	require.NoError(t, scanner.Err())
	return out
}

func newTestAdapter(t *testing.T, rt *fakeRuntime, identity identityClient) *Adapter {
	t.Helper()
	def, ok := catalog.DefaultFor("bedrock")
	require.True(t, ok)
	res, err := resolver.New(resolver.Options{
		Provider:    "bedrock",
		DefaultID:   def.ModelID,
		DefaultInfo: def.Info,
		Policy:      modelparams.Policy{RequireMaxTokens: true},
	})
	require.NoError(t, err)
	adapter, err := newAdapter(Options{Provider: "bedrock", Resolver: res}, rt, identity)
	require.NoError(t, err)
	return adapter
}

func TestCreateMessageStream(t *testing.T) {
	adapter := newTestAdapter(t, &fakeRuntime{}, nil)
	stream := newFakeStream(ssePayloads(t, "anthropic_stream.sse"), nil)
	var sent map[string]any
	adapter.openStream = func(_ context.Context, in *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error) {
		require.NoError(t, json.Unmarshal(in.Body, &sent))
		return stream, nil
	}

	res, err := streamutil.Collect(adapter.CreateMessage(context.Background(), "Be brief.",
		[]models.Message{models.UserText("hi")}, nil))
	require.NoError(t, err)
	require.Equal(t, "Hello!", res.Text)
	require.Equal(t, "Considering", res.Reasoning)
	require.NotNil(t, res.Usage)
	require.EqualValues(t, 25, res.Usage.InputTokens)
	require.EqualValues(t, 15, res.Usage.OutputTokens)
	require.EqualValues(t, 3, res.Usage.CacheWriteTokens)
	require.EqualValues(t, 10, res.Usage.CacheReadTokens)
	require.True(t, stream.closed)

	require.Equal(t, DefaultAnthropicVersion, sent["anthropic_version"])
	require.NotContains(t, sent, "model")
	require.NotContains(t, sent, "stream")
	require.Equal(t, "Be brief.", sent["system"])
}

func TestCreateMessageStreamErrorEvent(t *testing.T) {
	adapter := newTestAdapter(t, &fakeRuntime{}, nil)
	adapter.openStream = func(context.Context, *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error) {
		return newFakeStream(ssePayloads(t, "anthropic_stream_error.sse"), nil), nil
	}

	var text string
	var gotErr error
	for chunk, err := range adapter.CreateMessage(context.Background(), "", []models.Message{models.UserText("hi")}, nil) {
		if err != nil {
			gotErr = err
			break
		}
		text += chunk.Text
	}
	require.Equal(t, "Partial", text)
	require.Error(t, gotErr)
	require.Equal(t, providererr.KindRateLimit, providererr.KindOf(gotErr))
}

func TestCreateMessageThrottled(t *testing.T) {
	adapter := newTestAdapter(t, &fakeRuntime{}, nil)
	adapter.openStream = func(context.Context, *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error) {
		return nil, &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
	}

	_, err := streamutil.Collect(adapter.CreateMessage(context.Background(), "", []models.Message{models.UserText("hi")}, nil))
	require.Error(t, err)
	require.True(t, providererr.IsRateLimit(err))
	require.Contains(t, err.Error(), "bedrock API error")
}

func TestCreateMessageMidStreamFailure(t *testing.T) {
	adapter := newTestAdapter(t, &fakeRuntime{}, nil)
	payloads := ssePayloads(t, "anthropic_stream.sse")[:6]
	adapter.openStream = func(context.Context, *bedrockruntime.InvokeModelWithResponseStreamInput) (eventStream, error) {
		return newFakeStream(payloads, &smithy.GenericAPIError{Code: "ModelStreamErrorException", Message: "broken"}), nil
	}

	var chunks []models.StreamChunk
	var gotErr error
	for chunk, err := range adapter.CreateMessage(context.Background(), "", []models.Message{models.UserText("hi")}, nil) {
		if err != nil {
			gotErr = err
			break
		}
		chunks = append(chunks, chunk)
	}
	require.Error(t, gotErr)
	for _, c := range chunks {
		require.False(t, c.IsUsage())
	}
}

func TestCompletePrompt(t *testing.T) {
	rt := &fakeRuntime{invokeBody: fixtures.MustRead("anthropic_message.json")}
	adapter := newTestAdapter(t, rt, nil)

	out, err := adapter.CompletePrompt(context.Background(), "Say hi")
	require.NoError(t, err)
	require.Equal(t, "Fixture response", out)
	require.NotNil(t, rt.lastInput)
	require.Equal(t, adapter.GetModel().ID, *rt.lastInput.ModelId)
}

func TestCompletePromptAccessDenied(t *testing.T) {
	rt := &fakeRuntime{invokeErr: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no"}}
	adapter := newTestAdapter(t, rt, nil)

	_, err := adapter.CompletePrompt(context.Background(), "Say hi")
	require.True(t, providererr.IsAuth(err))
}

func TestProbe(t *testing.T) {
	adapter := newTestAdapter(t, &fakeRuntime{}, fakeIdentity{})
	require.NoError(t, adapter.Probe(context.Background()))

	adapter = newTestAdapter(t, &fakeRuntime{}, fakeIdentity{err: &smithy.GenericAPIError{Code: "ExpiredTokenException", Message: "expired"}})
	require.True(t, providererr.IsAuth(adapter.Probe(context.Background())))
}

func TestNewRequiresRegion(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
	require.True(t, providererr.IsAuth(err))
	require.Contains(t, err.Error(), "region")
}
