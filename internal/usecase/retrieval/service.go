package retrieval

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/domain"
	"github.com/finsight-ai/finsight/internal/logger"
)

// Result is a fused ranking plus retrieval-side bookkeeping.
type Result struct {
	Chunks          []domain.Chunk
	Degraded        bool // exactly one ranker failed; ranking is single-list
	EmbeddingTokens int
}

// Service retrieves candidate chunks by running the dense and sparse
// rankers concurrently and fusing their rankings.
type Service struct {
	dense     DenseIndex
	sparse    SparseIndex
	embed     Embedder
	overfetch int
}

// New creates a retrieval service. overfetch widens each ranker's fetch
// beyond topK so fusion has candidates unique to one list.
func New(dense DenseIndex, sparse SparseIndex, embed Embedder, overfetch int) *Service {
	if overfetch < 1 {
		overfetch = 1
	}
	return &Service{dense: dense, sparse: sparse, embed: embed, overfetch: overfetch}
}

// Retrieve returns the fused top-K chunks for a query.
// If exactly one ranker fails, the other list stands alone and the result
// is marked degraded. If both fail or both come back empty, the run cannot
// proceed and a retrieval stage error is returned.
func (s *Service) Retrieve(ctx context.Context, query domain.Query) (Result, error) {
	fetchK := query.TopK() * s.overfetch
	log := logger.FromContext(ctx)

	var (
		wg          sync.WaitGroup
		denseChunks []domain.Chunk
		denseErr    error
		embTokens   int

		sparseChunks []domain.Chunk
		sparseErr    error
	)

	// Each ranker fails independently: a dense failure (including the query
	// embedding) must not cancel the sparse branch, and vice versa.
	wg.Add(2)

	go func() {
		defer wg.Done()
		embResult, err := s.embed.Embed(ctx, query.Text())
		if err != nil {
			denseErr = fmt.Errorf("vectorize query: %w", err)
			return
		}
		embTokens = embResult.TotalTokens

		denseChunks, denseErr = s.dense.SearchDense(ctx, embResult.Embedding, query.Filters(), fetchK)
	}()

	go func() {
		defer wg.Done()
		sparseChunks, sparseErr = s.sparse.SearchSparse(ctx, query.Text(), query.Filters(), fetchK)
	}()

	wg.Wait()

	if denseErr != nil && sparseErr != nil {
		return Result{}, domain.NewStageError("retrieval", "both rankers failed",
			fmt.Errorf("%w: dense: %v; sparse: %v", domain.ErrRetrieval, denseErr, sparseErr))
	}

	degraded := false
	switch {
	case denseErr != nil:
		log.Warn("dense ranker failed, degrading to sparse-only ranking", zap.Error(denseErr))
		degraded = true
	case sparseErr != nil:
		log.Warn("sparse ranker failed, degrading to dense-only ranking", zap.Error(sparseErr))
		degraded = true
	}

	if len(denseChunks) == 0 && len(sparseChunks) == 0 {
		return Result{}, domain.NewStageError("retrieval", "no candidate chunks",
			fmt.Errorf("%w: both rankers returned empty results", domain.ErrRetrieval))
	}

	chunks := fuseRRF(denseChunks, sparseChunks, query.TopK())

	return Result{
		Chunks:          chunks,
		Degraded:        degraded,
		EmbeddingTokens: embTokens,
	}, nil
}
