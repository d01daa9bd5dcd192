package guardrail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/domain"
	"github.com/finsight-ai/finsight/internal/logger"
)

// Service applies release guardrails to an accepted draft: PII redaction
// first, then content-policy filtering.
type Service struct {
	redactor Redactor
	filter   PolicyFilter
}

func New(redactor Redactor, filter PolicyFilter) *Service {
	return &Service{redactor: redactor, filter: filter}
}

// Apply runs the guardrail chain over text. When policy filtering removes
// the entire answer body it fails with domain.ErrGuardrailBlocked instead of
// releasing an empty response.
func (s *Service) Apply(ctx context.Context, text string) (string, domain.GuardrailReport, error) {
	log := logger.FromContext(ctx)
	report := domain.GuardrailReport{}

	redacted := s.redactor.Redact(text)
	report.PIIRedactions = len(redacted.Entities)
	if report.PIIRedactions > 0 {
		types := make([]string, 0, len(redacted.Entities))
		for _, e := range redacted.Entities {
			types = append(types, e.Type)
		}
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d PII span(s) redacted from the response", report.PIIRedactions))
		log.Warn("pii redacted",
			zap.Int("spans", report.PIIRedactions),
			zap.Strings("types", types),
		)
	}

	filtered := s.filter.Apply(redacted.Text)
	report.PolicyStripped = filtered.Stripped
	report.DisclaimerAdded = filtered.DisclaimerAdded
	if filtered.Stripped > 0 {
		report.Warnings = append(report.Warnings,
			"investment advice content was removed from the response")
	}
	if filtered.DisclaimerAdded {
		report.Warnings = append(report.Warnings,
			"forward-looking statement disclaimer added")
	}

	if filtered.Blocked {
		log.Warn("guardrail blocked response",
			zap.Int("stripped_sentences", filtered.Stripped),
		)
		return "", report, domain.NewStageError("guardrails",
			"policy filtering removed the entire answer", domain.ErrGuardrailBlocked)
	}

	if report.PolicyStripped > 0 || report.DisclaimerAdded {
		log.Info("content policy applied",
			zap.Int("stripped_sentences", filtered.Stripped),
			zap.Bool("disclaimer_added", filtered.DisclaimerAdded),
			zap.Int("violations", len(filtered.Violations)),
		)
	}

	return filtered.Text, report, nil
}
