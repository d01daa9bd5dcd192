package domain

import (
	"fmt"
	"strings"
)

// Filters narrows retrieval to a company ticker and/or SEC filing type.
// Values are passed through to the retrieval index as-is.
type Filters struct {
	Company    string
	FilingType string
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool { return f.Company == "" && f.FilingType == "" }

// Query is an immutable financial-document question.
type Query struct {
	text              string
	topK              int
	filters           Filters
	includeEvaluation bool
	selfConsistency   bool
	maxRegenerations  int
}

const (
	minQueryLen = 5
	maxQueryLen = 2000
	maxTopK     = 20
)

// QueryOptions tunes a single workflow run.
type QueryOptions struct {
	TopK                    int
	IncludeEvaluation       bool
	EnableSelfConsistency   bool
	MaxRegenerationAttempts int
	CompanyFilter           string
	FilingTypeFilter        string
}

// DefaultQueryOptions returns the standard per-run settings.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		TopK:                    5,
		IncludeEvaluation:       true,
		EnableSelfConsistency:   true,
		MaxRegenerationAttempts: 2,
	}
}

// NewQuery validates and constructs a query.
func NewQuery(text string, opts QueryOptions) (Query, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minQueryLen {
		return Query{}, fmt.Errorf("%w: text must be at least %d characters", ErrInvalidQuery, minQueryLen)
	}
	if len(trimmed) > maxQueryLen {
		return Query{}, fmt.Errorf("%w: text must be at most %d characters", ErrInvalidQuery, maxQueryLen)
	}
	if opts.TopK <= 0 || opts.TopK > maxTopK {
		return Query{}, fmt.Errorf("%w: top_k must be between 1 and %d, got %d", ErrInvalidQuery, maxTopK, opts.TopK)
	}
	if opts.MaxRegenerationAttempts < 0 {
		return Query{}, fmt.Errorf("%w: max_regeneration_attempts must be >= 0", ErrInvalidQuery)
	}

	return Query{
		text:              trimmed,
		topK:              opts.TopK,
		filters:           Filters{Company: strings.ToUpper(opts.CompanyFilter), FilingType: opts.FilingTypeFilter},
		includeEvaluation: opts.IncludeEvaluation,
		selfConsistency:   opts.EnableSelfConsistency,
		maxRegenerations:  opts.MaxRegenerationAttempts,
	}, nil
}

// Text returns the question text.
func (q Query) Text() string { return q.text }

// TopK returns the requested retrieval breadth.
func (q Query) TopK() int { return q.topK }

// Filters returns the retrieval filters.
func (q Query) Filters() Filters { return q.filters }

// IncludeEvaluation reports whether the evaluation pipeline should run.
func (q Query) IncludeEvaluation() bool { return q.includeEvaluation }

// SelfConsistency reports whether consistency sampling is enabled.
func (q Query) SelfConsistency() bool { return q.selfConsistency }

// MaxRegenerations returns the extra generation attempts permitted.
func (q Query) MaxRegenerations() int { return q.maxRegenerations }
