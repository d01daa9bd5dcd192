package evaluation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/domain"
	"github.com/finsight-ai/finsight/internal/logger"
)

// hallucinationResult is the combined output of the three grounding signals.
type hallucinationResult struct {
	score     float64 // 1 - weighted support; higher = more likely hallucinated
	grounding float64 // weighted support
	reduced   bool    // one or more signals failed and were dropped
	reasoning string
}

// detectHallucination combines three independently computed signals:
// an LLM judge verdict, financial entity overlap, and per-sentence embedding
// similarity. All three run concurrently. A failed signal is dropped and the
// remaining weights renormalized rather than failing the run.
func (s *Service) detectHallucination(ctx context.Context, draft string, chunks []domain.Chunk, query string) hallucinationResult {
	log := logger.FromContext(ctx)
	weights := s.cfg.Hallucination

	var (
		wg sync.WaitGroup

		judge    judgeResult
		judgeErr error

		entityScore float64

		semanticScore float64
		semanticErr   error
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		judge, judgeErr = runJudge(ctx, s.judge, draft, chunks, query)
	}()

	go func() {
		defer wg.Done()
		entityScore = entityOverlap(draft, chunks)
	}()

	go func() {
		defer wg.Done()
		semanticScore, semanticErr = s.semanticSupport(ctx, draft, chunks)
	}()

	wg.Wait()

	type signal struct {
		name   string
		score  float64
		weight float64
		err    error
	}
	signals := []signal{
		{"judge", judge.support, weights.Judge, judgeErr},
		{"entity_overlap", entityScore, weights.Entity, nil},
		{"semantic_similarity", semanticScore, weights.Semantic, semanticErr},
	}

	var weightedSum, weightTotal float64
	var notes []string
	reduced := false

	for _, sig := range signals {
		if sig.err != nil {
			log.Warn("hallucination signal failed",
				zap.String("signal", sig.name), zap.Error(wrapSignal(sig.name, sig.err)))
			notes = append(notes, fmt.Sprintf("%s signal unavailable: %v", sig.name, sig.err))
			reduced = true
			continue
		}
		weightedSum += sig.weight * sig.score
		weightTotal += sig.weight
	}

	if weightTotal == 0 {
		// every signal failed: neutral score, heavily flagged
		return hallucinationResult{
			score:     0.5,
			grounding: 0.5,
			reduced:   true,
			reasoning: strings.Join(notes, "; "),
		}
	}

	support := weightedSum / weightTotal

	reasoning := judge.reasoning
	if len(notes) > 0 {
		if reasoning != "" {
			reasoning += "; "
		}
		reasoning += strings.Join(notes, "; ")
	}

	return hallucinationResult{
		score:     clamp01(1 - support),
		grounding: clamp01(support),
		reduced:   reduced,
		reasoning: reasoning,
	}
}

// entityOverlap scores what fraction of the draft's financial entities
// appear in the context. A draft with no extractable entities scores a
// neutral 0.5 so vague answers are not rewarded.
func entityOverlap(draft string, chunks []domain.Chunk) float64 {
	draftEntities := extractFinancialEntities(draft)
	if len(draftEntities) == 0 {
		return 0.5
	}

	var contextText strings.Builder
	for _, c := range chunks {
		contextText.WriteString(c.Text())
		contextText.WriteString(" ")
	}
	contextEntities := extractFinancialEntities(contextText.String())

	matched := 0
	for e := range draftEntities {
		if _, ok := contextEntities[e]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(draftEntities))
}

// semanticSupport embeds each draft sentence and scores it by its
// best-matching context chunk, averaged over sentences.
func (s *Service) semanticSupport(ctx context.Context, draft string, chunks []domain.Chunk) (float64, error) {
	sentences := splitSentences(draft)
	if len(sentences) == 0 || len(chunks) == 0 {
		return 0, fmt.Errorf("nothing to compare: %d sentences, %d chunks", len(sentences), len(chunks))
	}

	chunkVectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		emb, err := s.embed.Embed(ctx, c.Text())
		if err != nil {
			return 0, fmt.Errorf("embed chunk %s: %w", c.ID(), err)
		}
		chunkVectors[i] = emb.Embedding
	}

	var total float64
	for _, sentence := range sentences {
		emb, err := s.embed.Embed(ctx, sentence)
		if err != nil {
			return 0, fmt.Errorf("embed sentence: %w", err)
		}

		best := 0.0
		for _, cv := range chunkVectors {
			if sim := domain.CosineSimilarity(emb.Embedding, cv); sim > best {
				best = sim
			}
		}
		total += best
	}

	return total / float64(len(sentences)), nil
}

// wrapSignal classifies a degraded scoring signal under the evaluation
// error kind for canonical logs.
func wrapSignal(name string, err error) error {
	return fmt.Errorf("%w: %s signal: %w", domain.ErrEvaluation, name, err)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
