package domain

// Status is the evaluation verdict for an answer.
type Status string

const (
	// StatusPassed means the answer met every quality gate.
	StatusPassed Status = "passed"
	// StatusFlagged means the answer ships with quality concerns attached.
	StatusFlagged Status = "flagged"
	// StatusFailed means the answer failed a hard gate.
	StatusFailed Status = "failed"
	// StatusSkipped means evaluation was not requested for the run.
	StatusSkipped Status = "skipped"
)

// Evaluation flag labels.
const (
	FlagHighHallucination = "high_hallucination_score"
	FlagLowConsistency    = "low_consistency_score"
	FlagLowConfidence     = "low_confidence_score"
	FlagBudgetExhausted   = "regeneration_budget_exhausted"
	FlagReducedSignals    = "reduced_signal_confidence"
	FlagSingleRanker      = "single_ranker_degraded"
	FlagGuardrailBlocked  = "guardrail_blocked"
)

// EvaluationResult carries the scores and verdict for one generation attempt.
// Never mutated after creation.
type EvaluationResult struct {
	HallucinationScore  float64
	FactualGrounding    float64
	SemanticConsistency float64
	ConfidenceScore     float64
	Status              Status
	Flags               []string
	Reasoning           string
}

// HasFlag reports whether the result carries the given flag label.
func (r EvaluationResult) HasFlag(label string) bool {
	for _, f := range r.Flags {
		if f == label {
			return true
		}
	}
	return false
}

// WithStatus returns a copy carrying a different verdict. Used by the
// orchestrator to settle budget-exhausted and guardrail-blocked runs.
func (r EvaluationResult) WithStatus(status Status, extraFlags ...string) EvaluationResult {
	c := r
	c.Status = status
	c.Flags = make([]string, 0, len(r.Flags)+len(extraFlags))
	c.Flags = append(c.Flags, r.Flags...)
	for _, f := range extraFlags {
		if !c.HasFlag(f) {
			c.Flags = append(c.Flags, f)
		}
	}
	return c
}
