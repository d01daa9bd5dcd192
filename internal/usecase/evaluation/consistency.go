package evaluation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/domain"
	"github.com/finsight-ai/finsight/internal/logger"
)

// consistencyResult is the self-consistency verdict for one draft.
type consistencyResult struct {
	score   float64 // mean pairwise similarity over primary + samples
	samples int     // samples actually generated
	reduced bool    // fewer samples than requested
}

// scoreConsistency generates N extra samples of the same query/context
// concurrently and reports the mean pairwise semantic similarity across all
// drafts including the primary. A failed sample is dropped with a warning;
// if no sample survives, the score degrades to a neutral 0.5.
func (s *Service) scoreConsistency(ctx context.Context, query domain.Query, chunks []domain.Chunk, primary string) consistencyResult {
	log := logger.FromContext(ctx)
	n := s.cfg.ConsistencySamples

	texts := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			completion, err := s.sampler.Sample(ctx, query, chunks, s.cfg.SampleTemperature)
			if err != nil {
				errs[i] = err
				return
			}
			texts[i] = completion.Text
		}()
	}
	wg.Wait()

	drafts := []string{primary}
	for i := range n {
		if errs[i] != nil {
			log.Warn("consistency sample failed", zap.Error(wrapSignal("consistency", errs[i])))
			continue
		}
		drafts = append(drafts, texts[i])
	}

	generated := len(drafts) - 1
	if generated == 0 {
		return consistencyResult{score: 0.5, samples: 0, reduced: true}
	}

	score := s.meanPairwiseSimilarity(ctx, drafts)

	return consistencyResult{
		score:   score,
		samples: generated,
		reduced: generated < n,
	}
}

// meanPairwiseSimilarity averages similarity over every unordered pair.
// Identical texts short-circuit to exactly 1.0; embeddings are only computed
// for pairs that differ, and an embedding failure scores that pair neutrally.
func (s *Service) meanPairwiseSimilarity(ctx context.Context, drafts []string) float64 {
	log := logger.FromContext(ctx)

	vectors := make([][]float32, len(drafts))
	vectorOf := func(i int) []float32 {
		if vectors[i] != nil {
			return vectors[i]
		}
		emb, err := s.embed.Embed(ctx, drafts[i])
		if err != nil {
			log.Warn("consistency embedding failed", zap.Error(err))
			return nil
		}
		vectors[i] = emb.Embedding
		return vectors[i]
	}

	var total float64
	pairs := 0
	for i := 0; i < len(drafts); i++ {
		for j := i + 1; j < len(drafts); j++ {
			pairs++
			if drafts[i] == drafts[j] {
				total += 1.0
				continue
			}
			vi, vj := vectorOf(i), vectorOf(j)
			if vi == nil || vj == nil {
				total += 0.5
				continue
			}
			total += domain.CosineSimilarity(vi, vj)
		}
	}

	if pairs == 0 {
		return 0.5
	}
	return total / float64(pairs)
}
