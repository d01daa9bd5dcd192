package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrieval signals that both rankers failed or returned nothing.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration signals a model call failure or an invalid draft.
	ErrGeneration = errors.New("generation failed")
	// ErrEvaluation signals a scoring signal dependency failure.
	ErrEvaluation = errors.New("evaluation failed")
	// ErrGuardrailBlocked signals that policy filtering removed the entire answer.
	ErrGuardrailBlocked = errors.New("guardrail blocked response")
	// ErrCapacity signals admission queue exhaustion.
	ErrCapacity = errors.New("capacity exhausted")

	// ErrInvalidQuery signals a malformed query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidCitation signals a draft referencing a citation index
	// outside the supplied context set.
	ErrInvalidCitation = errors.New("invalid citation reference")
	// ErrModelProvider signals a model endpoint failure.
	ErrModelProvider = errors.New("model provider error")
)

// StageError wraps an underlying error with the workflow stage that produced it.
type StageError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Reason, e.Err.Error())
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with stage context and a human-readable reason.
func NewStageError(stage, reason string, err error) error {
	return &StageError{Stage: stage, Reason: reason, Err: err}
}

// CitationError wraps ErrInvalidCitation with the offending index and the valid range.
type CitationError struct {
	Index    int
	Supplied int
}

func (e *CitationError) Error() string {
	return fmt.Sprintf("%s: [Source %d] referenced but only %d sources supplied",
		ErrInvalidCitation.Error(), e.Index, e.Supplied)
}

func (e *CitationError) Unwrap() error { return ErrInvalidCitation }

// NewCitationError creates an invalid citation error.
func NewCitationError(index, supplied int) error {
	return &CitationError{Index: index, Supplied: supplied}
}
