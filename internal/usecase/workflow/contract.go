package workflow

import (
	"context"

	"github.com/finsight-ai/finsight/internal/domain"
	"github.com/finsight-ai/finsight/internal/usecase/retrieval"
)

// Retriever produces the fused context set for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query domain.Query) (retrieval.Result, error)
}

// Generator drafts answers over a fixed context set. Model reports the
// model identifier for result assembly.
type Generator interface {
	Generate(ctx context.Context, query domain.Query, chunks []domain.Chunk, priorReasoning string) (domain.Completion, error)
	Model() string
}

// Evaluator grades one attempt and decides whether it sits in the
// regeneration band.
type Evaluator interface {
	Evaluate(ctx context.Context, query domain.Query, draft string, chunks []domain.Chunk, citations []domain.Citation) domain.EvaluationResult
	NeedsRegeneration(result domain.EvaluationResult) bool
}

// Guard applies the release guardrails to an accepted draft.
type Guard interface {
	Apply(ctx context.Context, text string) (string, domain.GuardrailReport, error)
}
