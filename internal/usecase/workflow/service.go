package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/domain"
	"github.com/finsight-ai/finsight/internal/logger"
	"github.com/finsight-ai/finsight/internal/metrics"
)

// Runner orchestrates one query through the quality-gated pipeline:
// retrieval, generation, evaluation, bounded regeneration, guardrails,
// assembly. All per-run state lives on the stack of Run; runs for distinct
// queries share nothing but configuration and connection pools.
type Runner struct {
	retriever   Retriever
	generator   Generator
	evaluator   Evaluator
	guard       Guard
	pool        *Pool
	callTimeout time.Duration
}

func NewRunner(retriever Retriever, generator Generator, evaluator Evaluator, guard Guard, pool *Pool) *Runner {
	return &Runner{
		retriever: retriever,
		generator: generator,
		evaluator: evaluator,
		guard:     guard,
		pool:      pool,
	}
}

// WithCallTimeout bounds each stage call. Zero disables the bound.
func (w *Runner) WithCallTimeout(d time.Duration) *Runner {
	w.callTimeout = d
	return w
}

// stageCtx derives a per-stage context. A stage timing out is that stage's
// own error classification, not a workflow-level fatal condition.
func (w *Runner) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, w.callTimeout)
}

// run tracks the mutable state of one workflow execution.
type run struct {
	id    string
	state State
	log   *zap.Logger
}

// to moves the run along one edge of the state graph.
func (r *run) to(next State) {
	if !canTransition(r.state, next) {
		r.log.DPanic("invalid state transition",
			zap.String("from", string(r.state)),
			zap.String("to", string(next)),
		)
	}
	r.log.Debug("state transition",
		zap.String("from", string(r.state)),
		zap.String("to", string(next)),
	)
	r.state = next
}

func (r *run) fail(err error) error {
	r.state = StateFailed
	metrics.WorkflowRunsTotal.WithLabelValues(string(StateFailed)).Inc()
	r.log.Warn("workflow failed", zap.String("state", string(r.state)), zap.Error(err))
	return err
}

// Run executes one query end to end. Fatal stage errors surface with stage
// context and an error kind from the domain taxonomy; every other outcome
// produces a fully assembled result.
func (w *Runner) Run(ctx context.Context, query domain.Query) (domain.Result, error) {
	if err := w.pool.Acquire(ctx); err != nil {
		return domain.Result{}, err
	}
	defer w.pool.Release()

	started := time.Now()
	runID := uuid.NewString()
	r := &run{
		id:    runID,
		state: StateRetrieving,
		log:   logger.FromContext(ctx).With(zap.String("run_id", runID)),
	}
	ctx = logger.ContextWithLogger(ctx, r.log)
	var timings domain.StageTimings
	var usage domain.TokenUsage

	// Retrieval runs once per query. Regeneration reuses the same context
	// set so citation indices stay stable across attempts.
	retrieveStart := time.Now()
	retrieveCtx, cancel := w.stageCtx(ctx)
	retrieved, err := w.retriever.Retrieve(retrieveCtx, query)
	cancel()
	timings.Retrieval = time.Since(retrieveStart)
	metrics.WorkflowStageDuration.WithLabelValues("retrieval").Observe(timings.Retrieval.Seconds())
	if err != nil {
		return domain.Result{}, r.fail(err)
	}
	usage.EmbeddingTokens += retrieved.EmbeddingTokens
	citations := domain.CitationsFor(retrieved.Chunks)
	r.to(StateGenerating)

	maxAttempts := 1 + query.MaxRegenerations()
	var (
		accepted   domain.Attempt
		evaluation domain.EvaluationResult
		evaluated  bool
		reasoning  string
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		genStart := time.Now()
		genCtx, cancel := w.stageCtx(ctx)
		completion, err := w.generator.Generate(genCtx, query, retrieved.Chunks, reasoning)
		cancel()
		timings.Generation += time.Since(genStart)
		metrics.WorkflowStageDuration.WithLabelValues("generation").Observe(time.Since(genStart).Seconds())
		if err != nil {
			return domain.Result{}, r.fail(err)
		}
		accepted = domain.Attempt{
			Number: attempt,
			Text:   completion.Text,
			Usage: domain.TokenUsage{
				PromptTokens:     completion.PromptTokens,
				CompletionTokens: completion.CompletionTokens,
			},
		}
		usage.Add(accepted.Usage)

		if !query.IncludeEvaluation() {
			r.to(StateGuardrails)
			break
		}

		r.to(StateEvaluating)
		evalStart := time.Now()
		evalCtx, cancel := w.stageCtx(ctx)
		evaluation = w.evaluator.Evaluate(evalCtx, query, accepted.Text, retrieved.Chunks, citations)
		cancel()
		evaluated = true
		timings.Evaluation += time.Since(evalStart)
		metrics.WorkflowStageDuration.WithLabelValues("evaluation").Observe(time.Since(evalStart).Seconds())

		if w.evaluator.NeedsRegeneration(evaluation) && attempt < maxAttempts {
			r.to(StateRegenerating)
			metrics.RegenerationsTotal.Inc()
			reasoning = evaluation.Reasoning
			r.log.Info("regenerating",
				zap.Int("attempt", attempt),
				zap.Float64("hallucination_score", evaluation.HallucinationScore),
			)
			r.to(StateGenerating)
			continue
		}

		r.to(StateGuardrails)
		break
	}

	var warnings []string
	if evaluated {
		if w.evaluator.NeedsRegeneration(evaluation) {
			// Budget ran out with the score still in the regeneration band.
			evaluation = evaluation.WithStatus(domain.StatusFlagged, domain.FlagBudgetExhausted)
		}
		if retrieved.Degraded {
			evaluation = evaluation.WithStatus(evaluation.Status, domain.FlagSingleRanker)
		}
	} else if retrieved.Degraded {
		// No evaluation result to carry the flag; warn on the result itself.
		warnings = append(warnings, "retrieval degraded to a single ranker")
		r.log.Warn("retrieval degraded to a single ranker")
	}

	guardStart := time.Now()
	finalText, report, err := w.guard.Apply(ctx, accepted.Text)
	timings.Guardrails = time.Since(guardStart)
	metrics.WorkflowStageDuration.WithLabelValues("guardrails").Observe(timings.Guardrails.Seconds())
	if err != nil {
		return domain.Result{}, r.fail(err)
	}
	r.to(StateAssembling)

	timings.Total = time.Since(started)
	result := domain.Result{
		RunID:      r.id,
		Query:      query.Text(),
		Response:   finalText,
		Citations:  citations,
		Guardrails: report,
		Warnings:   warnings,
		Model:      w.generator.Model(),
		Usage:      usage,
		Attempts:   accepted.Number,
		Timings:    timings,
	}
	status := domain.StatusSkipped
	if evaluated {
		result.Evaluation = &evaluation
		status = evaluation.Status
	}
	r.to(StateDone)
	metrics.WorkflowRunsTotal.WithLabelValues(string(status)).Inc()

	r.log.Info("workflow complete",
		zap.String("status", string(status)),
		zap.Int("attempts", result.Attempts),
		zap.Int("citations", len(citations)),
		zap.Int("tokens", usage.Total()),
		zap.Duration("elapsed", timings.Total),
	)
	return result, nil
}
