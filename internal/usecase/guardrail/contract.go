package guardrail

import (
	"github.com/finsight-ai/finsight/internal/guardrails/pii"
	"github.com/finsight-ai/finsight/internal/guardrails/policy"
)

// Redactor removes PII spans from generated text.
type Redactor interface {
	Redact(text string) pii.Result
}

// PolicyFilter enforces the financial content policy on generated text.
type PolicyFilter interface {
	Apply(text string) policy.Result
}
