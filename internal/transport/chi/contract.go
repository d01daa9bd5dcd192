package chi

import (
	"context"

	"github.com/finsight-ai/finsight/internal/domain"
)

// WorkflowRunner executes one query through the quality-gated pipeline.
type WorkflowRunner interface {
	Run(ctx context.Context, query domain.Query) (domain.Result, error)
}

// Pinger checks retrieval index connectivity for health reporting.
type Pinger interface {
	Ping(ctx context.Context) error
}
