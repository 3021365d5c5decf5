// Package streamutil turns vendor frame streams into normalized chunk
// sequences. Iteration is pull based: nothing is read from the transport
// until the consumer asks for the next chunk.
package streamutil

import (
	"errors"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/providererr"
)

var ErrStreamConsumed = errors.New("streamutil: stream already consumed")

// Source is a pull based frame iterator. *ssestream.Stream from openai-go
// satisfies it directly.
type Source[T any] interface {
	Next() bool
	Current() T
	Err() error
	Close() error
}

// Frame is what an adapter extracts from one vendor event. Usage, when set,
// replaces whatever usage was seen before. Err aborts the stream.
type Frame struct {
	Text      string
	Reasoning string
	Usage     *models.Usage
	Err       error
}

type ExtractFunc[T any] func(T) Frame

// OpenFunc issues the vendor request. It runs on the first pull.
type OpenFunc[T any] func() (Source[T], error)

// Normalize adapts an already open source. Text and reasoning are yielded as
// soon as they arrive; one usage chunk follows a clean end of stream if any
// frame carried usage. A transport error is yielded once, normalized, and
// ends the sequence without a usage chunk. The source is closed however
// iteration ends.
func Normalize[T any](provider string, src Source[T], extract ExtractFunc[T]) iter.Seq2[models.StreamChunk, error] {
	return Lazy(provider, func() (Source[T], error) { return src, nil }, extract)
}

// Lazy defers opening the source until the consumer starts iterating. The
// returned sequence is single use.
func Lazy[T any](provider string, open OpenFunc[T], extract ExtractFunc[T]) iter.Seq2[models.StreamChunk, error] {
	var started atomic.Bool
	return func(yield func(models.StreamChunk, error) bool) {
		if !started.CompareAndSwap(false, true) {
			yield(models.StreamChunk{}, ErrStreamConsumed)
			return
		}
		src, err := open()
		if err != nil {
			yield(models.StreamChunk{}, providererr.Normalize(provider, err))
			return
		}
		defer src.Close()

		var last *models.Usage
		for src.Next() {
			frame := extract(src.Current())
			if frame.Err != nil {
				yield(models.StreamChunk{}, providererr.Normalize(provider, frame.Err))
				return
			}
			if frame.Reasoning != "" {
				if !yield(models.ReasoningChunk(frame.Reasoning), nil) {
					return
				}
			}
			if frame.Text != "" {
				if !yield(models.TextChunk(frame.Text), nil) {
					return
				}
			}
			if frame.Usage != nil {
				usage := *frame.Usage
				last = &usage
			}
		}
		if err := src.Err(); err != nil {
			yield(models.StreamChunk{}, providererr.Normalize(provider, err))
			return
		}
		if last != nil {
			yield(models.UsageChunk(*last), nil)
		}
	}
}

// Result is a fully drained stream.
type Result struct {
	Text      string
	Reasoning string
	Usage     *models.StreamChunk
	Chunks    int
}

// Collect drains seq, stopping at the first error.
func Collect(seq iter.Seq2[models.StreamChunk, error]) (Result, error) {
	var (
		res       Result
		text      strings.Builder
		reasoning strings.Builder
	)
	for chunk, err := range seq {
		if err != nil {
			res.Text, res.Reasoning = text.String(), reasoning.String()
			return res, err
		}
		res.Chunks++
		switch chunk.Type {
		case models.ChunkText:
			text.WriteString(chunk.Text)
		case models.ChunkReasoning:
			reasoning.WriteString(chunk.Text)
		case models.ChunkUsage:
			usage := chunk
			res.Usage = &usage
		}
	}
	res.Text, res.Reasoning = text.String(), reasoning.String()
	return res, nil
}
