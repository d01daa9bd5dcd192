package domain

import "time"

// StageTimings records per-stage latency for one workflow run.
type StageTimings struct {
	Retrieval  time.Duration
	Generation time.Duration
	Evaluation time.Duration
	Guardrails time.Duration
	Total      time.Duration
}

// GuardrailReport summarizes what the guardrail stage did to the answer.
type GuardrailReport struct {
	PIIRedactions   int
	PolicyStripped  int
	DisclaimerAdded bool
	Warnings        []string
}

// Result is the final assembled response for one workflow run.
type Result struct {
	RunID      string
	Query      string
	Response   string
	Citations  []Citation
	Evaluation *EvaluationResult // nil when evaluation was disabled
	Guardrails GuardrailReport
	Warnings   []string // run-level degradation notices; with evaluation enabled these ride Evaluation.Flags instead
	Model      string
	Usage      TokenUsage
	Attempts   int
	Timings    StageTimings
}
