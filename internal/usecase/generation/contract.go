package generation

import (
	"context"

	"github.com/finsight-ai/finsight/internal/domain"
)

// CompletionClient produces draft answers from the language model.
type CompletionClient interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
	Model() string
}
