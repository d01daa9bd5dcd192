package evaluation

import (
	"context"

	"github.com/finsight-ai/finsight/internal/domain"
)

// CompletionClient runs the independent judge model call.
type CompletionClient interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// Sampler produces extra drafts for self-consistency comparison.
type Sampler interface {
	Sample(ctx context.Context, query domain.Query, chunks []domain.Chunk, temperature float32) (domain.Completion, error)
}

// Embedder vectorizes text for the semantic-similarity signals.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
