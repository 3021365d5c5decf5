package providers

import (
	"context"
	"iter"

	"github.com/ncecere/model_router/internal/models"
)

// Handler is the uniform contract every vendor adapter implements.
type Handler interface {
	// CreateMessage returns a lazy, single-use stream. Text and reasoning
	// chunks arrive in vendor order; at most one usage chunk is last.
	CreateMessage(ctx context.Context, systemPrompt string, messages []models.Message, metadata *models.MessageMetadata) iter.Seq2[models.StreamChunk, error]
	// CompletePrompt runs a single-shot completion. An empty string means
	// the vendor returned no content.
	CompletePrompt(ctx context.Context, prompt string) (string, error)
	GetModel() models.ResolvedModel
	FetchModel(ctx context.Context) models.ResolvedModel
}

// Prober is implemented by handlers that can verify credentials cheaply.
type Prober interface {
	Probe(ctx context.Context) error
}
