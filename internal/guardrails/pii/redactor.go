package pii

import (
	"regexp"
	"sort"

	"github.com/finsight-ai/finsight/internal/metrics"
)

// Entity is one detected PII span.
type Entity struct {
	Type  string
	Start int
	End   int
	Text  string
}

// Result is the outcome of one redaction pass.
type Result struct {
	Text     string
	Entities []Entity
}

// PII entity type labels. They appear inside the typed placeholder, e.g.
// [REDACTED:SSN].
const (
	TypeSSN           = "SSN"
	TypeCreditCard    = "CREDIT_CARD"
	TypeAccountNumber = "ACCOUNT_NUMBER"
	TypeRoutingNumber = "ROUTING_NUMBER"
	TypeEmail         = "EMAIL"
	TypePhone         = "PHONE"
)

type pattern struct {
	entityType string
	re         *regexp.Regexp
}

// Ordered by specificity: routing/account before phone so a labeled account
// number is not half-claimed by the looser phone pattern.
var patterns = []pattern{
	{TypeSSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{TypeCreditCard, regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)},
	{TypeRoutingNumber, regexp.MustCompile(`(?i)\brouting\s*(?:number|#|no\.?)?[:.\s]*\d{9}\b`)},
	{TypeAccountNumber, regexp.MustCompile(`(?i)\baccount\s*(?:number|#|no\.?)?[:.\s]*\d{8,17}\b`)},
	{TypeEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{TypePhone, regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
}

// Redactor detects and replaces PII spans with typed placeholders.
// Placeholders contain no digits, so redaction is idempotent.
type Redactor struct {
	enabled bool
}

// New creates a redactor. When disabled it passes text through untouched.
func New(enabled bool) *Redactor {
	return &Redactor{enabled: enabled}
}

// Redact replaces every detected PII span with [REDACTED:<TYPE>].
func (r *Redactor) Redact(text string) Result {
	if !r.enabled {
		return Result{Text: text}
	}

	entities := detect(text)
	if len(entities) == 0 {
		return Result{Text: text}
	}

	// Replace back to front so earlier spans keep their offsets.
	redacted := text
	for i := len(entities) - 1; i >= 0; i-- {
		e := entities[i]
		redacted = redacted[:e.Start] + "[REDACTED:" + e.Type + "]" + redacted[e.End:]
	}

	for _, e := range entities {
		metrics.PIIDetectionsTotal.WithLabelValues(e.Type).Inc()
	}

	return Result{Text: redacted, Entities: entities}
}

// detect returns non-overlapping PII spans in ascending position order.
// When two patterns claim overlapping text, the earlier (more specific)
// pattern wins.
func detect(text string) []Entity {
	var entities []Entity
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if overlapsAny(entities, loc[0], loc[1]) {
				continue
			}
			entities = append(entities, Entity{
				Type:  p.entityType,
				Start: loc[0],
				End:   loc[1],
				Text:  text[loc[0]:loc[1]],
			})
		}
	}

	sort.Slice(entities, func(i, j int) bool { return entities[i].Start < entities[j].Start })
	return entities
}

func overlapsAny(entities []Entity, start, end int) bool {
	for _, e := range entities {
		if start < e.End && end > e.Start {
			return true
		}
	}
	return false
}
