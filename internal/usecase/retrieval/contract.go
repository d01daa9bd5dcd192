package retrieval

import (
	"context"

	"github.com/finsight-ai/finsight/internal/domain"
)

// DenseIndex ranks chunks by embedding similarity.
type DenseIndex interface {
	SearchDense(ctx context.Context, vector []float32, filters domain.Filters, k int) ([]domain.Chunk, error)
}

// SparseIndex ranks chunks by BM25 keyword match.
type SparseIndex interface {
	SearchSparse(ctx context.Context, query string, filters domain.Filters, k int) ([]domain.Chunk, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
