package generation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/finsight-ai/finsight/internal/domain"
)

// Service turns (query, ranked chunks) into a draft answer with inline
// citation markers, and produces extra samples for consistency scoring.
type Service struct {
	client      CompletionClient
	temperature float32
}

// New creates a generation service. temperature applies to primary drafts;
// consistency samples pass their own.
func New(client CompletionClient, temperature float32) *Service {
	return &Service{client: client, temperature: temperature}
}

// Model returns the completion model in use.
func (s *Service) Model() string { return s.client.Model() }

// Generate produces a draft answer grounded in the supplied chunks.
// priorReasoning carries the failure notes from a rejected attempt;
// regeneration reuses the same chunk set and citation indices so score
// changes are attributable to wording, not new evidence.
// A draft referencing a citation index outside the supplied set gets one
// recovery call with the same request; a second invalid draft is rejected
// with a generation stage error.
func (s *Service) Generate(ctx context.Context, query domain.Query, chunks []domain.Chunk, priorReasoning string) (domain.Completion, error) {
	req := domain.CompletionRequest{
		System:      systemPrompt,
		User:        buildUserPrompt(query.Text(), chunks, priorReasoning),
		Temperature: s.temperature,
	}

	completion, err := s.client.Complete(ctx, req)
	if err != nil {
		return domain.Completion{}, domain.NewStageError("generation", "model call failed",
			wrapGeneration(err))
	}
	if validateCitations(completion.Text, len(chunks)) == nil {
		return completion, nil
	}

	retry, err := s.client.Complete(ctx, req)
	if err != nil {
		return domain.Completion{}, domain.NewStageError("generation", "model call failed",
			wrapGeneration(err))
	}
	if err := validateCitations(retry.Text, len(chunks)); err != nil {
		return domain.Completion{}, domain.NewStageError("generation", "draft cites unknown source",
			wrapGeneration(err))
	}

	// Both calls were billed; the rejected draft's usage carries over.
	retry.PromptTokens += completion.PromptTokens
	retry.CompletionTokens += completion.CompletionTokens
	return retry, nil
}

// Sample produces one additional draft at the given temperature for
// self-consistency comparison. Samples skip citation validation: they are
// never surfaced to the caller, only compared against the primary draft.
func (s *Service) Sample(ctx context.Context, query domain.Query, chunks []domain.Chunk, temperature float32) (domain.Completion, error) {
	completion, err := s.client.Complete(ctx, domain.CompletionRequest{
		System:      systemPrompt,
		User:        buildUserPrompt(query.Text(), chunks, ""),
		Temperature: temperature,
	})
	if err != nil {
		return domain.Completion{}, wrapGeneration(err)
	}
	return completion, nil
}

func wrapGeneration(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrGeneration, err)
}

var citationMarker = regexp.MustCompile(`\[Source (\d+)\]`)

// validateCitations rejects drafts referencing citation indices outside
// [1, supplied]. Validation runs before the draft reaches evaluation.
func validateCitations(text string, supplied int) error {
	for _, m := range citationMarker.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > supplied {
			return domain.NewCitationError(idx, supplied)
		}
	}
	return nil
}
