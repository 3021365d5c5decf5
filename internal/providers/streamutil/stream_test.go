package streamutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/providererr"
)

type fakeFrame struct {
	text      string
	reasoning string
	usage     *models.Usage
}

func extractFake(f fakeFrame) Frame {
	return Frame{Text: f.text, Reasoning: f.reasoning, Usage: f.usage}
}

func drain(t *testing.T, src Source[fakeFrame]) ([]models.StreamChunk, error) {
	t.Helper()
	var out []models.StreamChunk
	for chunk, err := range Normalize("deepinfra", src, extractFake) {
		if err != nil {
			return out, err
		}
		out = append(out, chunk)
	}
	return out, nil
}

func TestNormalizeEmitsTextThenSingleUsage(t *testing.T) {
	src := &SliceSource[fakeFrame]{Frames: []fakeFrame{
		{text: "Hel"},
		{usage: &models.Usage{InputTokens: 3}},
		{text: "lo"},
		{text: "", usage: &models.Usage{InputTokens: 10, OutputTokens: 2}},
	}}

	chunks, err := drain(t, src)
	require.NoError(t, err)
	require.Equal(t, []models.StreamChunk{
		models.TextChunk("Hel"),
		models.TextChunk("lo"),
		{Type: models.ChunkUsage, InputTokens: 10, OutputTokens: 2},
	}, chunks)
	require.True(t, src.Closed)
}

func TestNormalizeWithoutUsageEmitsNoUsageChunk(t *testing.T) {
	chunks, err := drain(t, &SliceSource[fakeFrame]{Frames: []fakeFrame{{text: "a"}, {text: "b"}}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		require.False(t, c.IsUsage())
	}
}

func TestNormalizeErrorMidStream(t *testing.T) {
	src := &SliceSource[fakeFrame]{
		Frames: []fakeFrame{{text: "partial", usage: &models.Usage{InputTokens: 1}}},
		Fail:   errors.New("unexpected EOF"),
	}

	chunks, err := drain(t, src)
	require.Equal(t, []models.StreamChunk{models.TextChunk("partial")}, chunks)
	require.ErrorIs(t, err, providererr.ErrTransport)
	require.Equal(t, "deepinfra", err.(*providererr.Error).Provider)
	require.True(t, src.Closed)
}

func TestNormalizeFrameErrorStops(t *testing.T) {
	src := &SliceSource[fakeFrame]{Frames: []fakeFrame{{text: "a"}, {text: "b"}}}
	seq := Normalize("anthropic", src, func(f fakeFrame) Frame {
		if f.text == "b" {
			return Frame{Err: &providererr.StatusError{StatusCode: 529, Message: "overloaded"}}
		}
		return extractFake(f)
	})
	res, err := Collect(seq)
	require.Equal(t, "a", res.Text)
	require.Nil(t, res.Usage)
	require.ErrorIs(t, err, providererr.ErrTransport)
}

func TestNormalizeEarlyBreakClosesSource(t *testing.T) {
	src := &SliceSource[fakeFrame]{Frames: []fakeFrame{{text: "a"}, {text: "b"}, {text: "c"}}}
	seen := 0
	for range Normalize("deepinfra", src, extractFake) {
		seen++
		break
	}
	require.Equal(t, 1, seen)
	require.True(t, src.Closed)
	require.Equal(t, 1, src.pos)
}

func TestNormalizeReasoningBeforeText(t *testing.T) {
	res, err := Collect(Normalize("deepinfra", &SliceSource[fakeFrame]{Frames: []fakeFrame{
		{reasoning: "think"},
		{reasoning: "ing", text: "answer"},
	}}, extractFake))
	require.NoError(t, err)
	require.Equal(t, "thinking", res.Reasoning)
	require.Equal(t, "answer", res.Text)
	require.Equal(t, 3, res.Chunks)
}

func TestLazyOpensOnFirstPullAndIsSingleUse(t *testing.T) {
	opened := 0
	seq := Lazy("deepinfra", func() (Source[fakeFrame], error) {
		opened++
		return &SliceSource[fakeFrame]{Frames: []fakeFrame{{text: "x"}}}, nil
	}, extractFake)
	require.Equal(t, 0, opened)

	res, err := Collect(seq)
	require.NoError(t, err)
	require.Equal(t, "x", res.Text)
	require.Equal(t, 1, opened)

	_, err = Collect(seq)
	require.ErrorIs(t, err, ErrStreamConsumed)
	require.Equal(t, 1, opened)
}

func TestLazyOpenFailure(t *testing.T) {
	seq := Lazy("openrouter", func() (Source[fakeFrame], error) {
		return nil, &providererr.StatusError{StatusCode: 401, Message: "no key"}
	}, extractFake)
	res, err := Collect(seq)
	require.True(t, providererr.IsAuth(err))
	require.Zero(t, res.Chunks)
}

type sseEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func TestSSESourceDecodesDataLines(t *testing.T) {
	body := strings.Join([]string{
		"event: message",
		`data: {"type":"delta","text":"Hi"}`,
		"",
		": keepalive",
		"data: {not json",
		"",
		`data: {"type":"delta","text":" there"}`,
		"",
		"data: [DONE]",
		"",
		`data: {"type":"delta","text":"ignored"}`,
	}, "\n")
	src := NewSSESource[sseEvent](io.NopCloser(strings.NewReader(body)), nil)

	var texts []string
	for src.Next() {
		texts = append(texts, src.Current().Text)
	}
	require.NoError(t, src.Err())
	require.Equal(t, []string{"Hi", " there"}, texts)
	require.NoError(t, src.Close())
}

func TestSSESourceLastLineWithoutNewline(t *testing.T) {
	src := NewSSESource[sseEvent](io.NopCloser(strings.NewReader(`data: {"text":"tail"}`)), nil)
	require.True(t, src.Next())
	require.Equal(t, "tail", src.Current().Text)
	require.False(t, src.Next())
	require.NoError(t, src.Err())
}

func TestChannelSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan int, 1)
	events <- 7
	closed := 0
	src := NewChannelSource(ctx, events, nil, func() error { closed++; return nil })

	require.True(t, src.Next())
	require.Equal(t, 7, src.Current())
	cancel()
	require.False(t, src.Next())
	require.ErrorIs(t, src.Err(), context.Canceled)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	require.Equal(t, 1, closed)
}

func TestChannelSourceReportsStreamError(t *testing.T) {
	events := make(chan int)
	close(events)
	src := NewChannelSource(context.Background(), events, func() error { return io.ErrUnexpectedEOF }, nil)
	require.False(t, src.Next())
	require.ErrorIs(t, src.Err(), io.ErrUnexpectedEOF)
}
