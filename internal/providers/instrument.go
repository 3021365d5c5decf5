package providers

import (
	"context"
	"iter"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/providererr"
)

// Recorder receives per-call measurements. observability.Provider implements it.
type Recorder interface {
	RecordStream(provider, model, outcome string, firstChunk, total time.Duration)
	RecordTokens(provider, model string, usage models.StreamChunk)
}

const tracerName = "github.com/ncecere/model_router/internal/providers"

// Instrument decorates h with metrics and tracing. Stream semantics are
// unchanged: chunks and errors pass through as produced.
func Instrument(h Handler, provider string, rec Recorder) Handler {
	if h == nil || rec == nil {
		return h
	}
	return &instrumented{Handler: h, provider: provider, rec: rec, tracer: otel.Tracer(tracerName)}
}

type instrumented struct {
	Handler
	provider string
	rec      Recorder
	tracer   trace.Tracer
}

func (i *instrumented) CreateMessage(ctx context.Context, systemPrompt string, messages []models.Message, metadata *models.MessageMetadata) iter.Seq2[models.StreamChunk, error] {
	return func(yield func(models.StreamChunk, error) bool) {
		ctx, span := i.tracer.Start(ctx, "provider.create_message", trace.WithAttributes(
			attribute.String("provider", i.provider),
			attribute.Int("messages", len(messages)),
		))
		defer span.End()

		start := time.Now()
		var first time.Duration
		model := i.Handler.GetModel().ID
		outcome := "ok"
		defer func() {
			i.rec.RecordStream(i.provider, model, outcome, first, time.Since(start))
		}()

		for chunk, err := range i.Handler.CreateMessage(ctx, systemPrompt, messages, metadata) {
			if err != nil {
				outcome = outcomeFor(err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				yield(chunk, err)
				return
			}
			if first == 0 {
				first = time.Since(start)
			}
			if chunk.IsUsage() {
				i.rec.RecordTokens(i.provider, model, chunk)
				span.SetAttributes(
					attribute.Int64("usage.input_tokens", chunk.InputTokens),
					attribute.Int64("usage.output_tokens", chunk.OutputTokens),
				)
			}
			if !yield(chunk, nil) {
				outcome = "abandoned"
				return
			}
		}
	}
}

func (i *instrumented) CompletePrompt(ctx context.Context, prompt string) (string, error) {
	ctx, span := i.tracer.Start(ctx, "provider.complete_prompt", trace.WithAttributes(attribute.String("provider", i.provider)))
	defer span.End()

	start := time.Now()
	out, err := i.Handler.CompletePrompt(ctx, prompt)
	outcome := "ok"
	if err != nil {
		outcome = outcomeFor(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	elapsed := time.Since(start)
	i.rec.RecordStream(i.provider, i.Handler.GetModel().ID, outcome, elapsed, elapsed)
	return out, err
}

// Probe forwards to the wrapped handler when it supports probing.
func (i *instrumented) Probe(ctx context.Context) error {
	if prober, ok := i.Handler.(Prober); ok {
		return prober.Probe(ctx)
	}
	return nil
}

func outcomeFor(err error) string {
	if kind := providererr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
