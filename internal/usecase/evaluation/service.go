package evaluation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/domain"
	"github.com/finsight-ai/finsight/internal/logger"
	"github.com/finsight-ai/finsight/internal/metrics"
)

// Service runs the evaluation pipeline: hallucination detection,
// self-consistency sampling, and confidence scoring for one attempt.
type Service struct {
	judge   CompletionClient
	sampler Sampler
	embed   Embedder
	cfg     domain.EvalConfig
}

// New creates an evaluation service.
func New(judge CompletionClient, sampler Sampler, embed Embedder, cfg domain.EvalConfig) *Service {
	return &Service{judge: judge, sampler: sampler, embed: embed, cfg: cfg}
}

// Evaluate scores one generation attempt. The three hallucination signals run
// concurrently; consistency sampling starts right after them so its network
// latency overlaps theirs. Signal failures degrade the verdict instead of
// failing the run.
func (s *Service) Evaluate(ctx context.Context, query domain.Query, draft string, chunks []domain.Chunk, citations []domain.Citation) domain.EvaluationResult {
	log := logger.FromContext(ctx)

	var (
		wg          sync.WaitGroup
		hallu       hallucinationResult
		consistency consistencyResult
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		hallu = s.detectHallucination(ctx, draft, chunks, query.Text())
	}()

	runConsistency := query.SelfConsistency() && s.cfg.ConsistencySamples > 0
	if runConsistency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consistency = s.scoreConsistency(ctx, query, chunks, draft)
		}()
	}

	wg.Wait()

	confidence := scoreConfidence(draft, citations, s.cfg.Confidence)

	result := domain.EvaluationResult{
		HallucinationScore:  hallu.score,
		FactualGrounding:    hallu.grounding,
		SemanticConsistency: consistency.score,
		ConfidenceScore:     confidence,
		Reasoning:           hallu.reasoning,
	}

	var flags []string
	if hallu.score >= s.cfg.RegenThreshold {
		flags = append(flags, domain.FlagHighHallucination)
	}
	if confidence < s.cfg.ConfidenceFloor {
		flags = append(flags, domain.FlagLowConfidence)
	}
	if runConsistency && consistency.score < 0.5 {
		flags = append(flags, domain.FlagLowConsistency)
	}
	if hallu.reduced || consistency.reduced {
		flags = append(flags, domain.FlagReducedSignals)
	}
	result.Flags = flags

	switch {
	case hallu.score >= s.cfg.FailThreshold:
		result.Status = domain.StatusFailed
	case hallu.score >= s.cfg.RegenThreshold || confidence < s.cfg.ConfidenceFloor:
		result.Status = domain.StatusFlagged
	default:
		result.Status = domain.StatusPassed
	}

	metrics.EvaluationScores.WithLabelValues("hallucination").Observe(result.HallucinationScore)
	metrics.EvaluationScores.WithLabelValues("confidence").Observe(result.ConfidenceScore)
	if runConsistency {
		metrics.EvaluationScores.WithLabelValues("consistency").Observe(result.SemanticConsistency)
	}
	metrics.EvaluationStatusTotal.WithLabelValues(string(result.Status)).Inc()

	log.Info("evaluation complete",
		zap.Float64("hallucination_score", result.HallucinationScore),
		zap.Float64("confidence_score", result.ConfidenceScore),
		zap.Float64("consistency_score", result.SemanticConsistency),
		zap.String("status", string(result.Status)),
		zap.Strings("flags", result.Flags),
	)

	return result
}

// NeedsRegeneration reports whether the verdict sits in the regeneration
// band: bad enough to retry, not bad enough to hard-fail.
func (s *Service) NeedsRegeneration(result domain.EvaluationResult) bool {
	return result.HallucinationScore >= s.cfg.RegenThreshold &&
		result.HallucinationScore < s.cfg.FailThreshold
}
