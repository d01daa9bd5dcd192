package guardrail

import (
	"github.com/finsight-ai/finsight/internal/guardrails/pii"
	"github.com/finsight-ai/finsight/internal/guardrails/policy"
)

type mockRedactor struct {
	fn func(text string) pii.Result
}

func (m *mockRedactor) Redact(text string) pii.Result {
	if m.fn != nil {
		return m.fn(text)
	}
	return pii.Result{Text: text}
}

type mockFilter struct {
	fn func(text string) policy.Result
}

func (m *mockFilter) Apply(text string) policy.Result {
	if m.fn != nil {
		return m.fn(text)
	}
	return policy.Result{Text: text}
}
