package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewQuery_Valid(t *testing.T) {
	opts := DefaultQueryOptions()
	opts.CompanyFilter = "aapl"

	q, err := NewQuery("What are Apple's risk factors?", opts)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	if q.Text() != "What are Apple's risk factors?" {
		t.Errorf("unexpected text %q", q.Text())
	}
	if q.TopK() != 5 {
		t.Errorf("expected top_k 5, got %d", q.TopK())
	}
	if q.Filters().Company != "AAPL" {
		t.Errorf("company filter not uppercased: %q", q.Filters().Company)
	}
	if q.MaxRegenerations() != 2 {
		t.Errorf("expected 2 regenerations, got %d", q.MaxRegenerations())
	}
}

func TestNewQuery_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
		mod  func(*QueryOptions)
	}{
		{name: "too short", text: "hi"},
		{name: "too long", text: strings.Repeat("a", 2001)},
		{name: "zero top_k", text: "valid question", mod: func(o *QueryOptions) { o.TopK = 0 }},
		{name: "top_k above limit", text: "valid question", mod: func(o *QueryOptions) { o.TopK = 21 }},
		{name: "negative budget", text: "valid question", mod: func(o *QueryOptions) { o.MaxRegenerationAttempts = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultQueryOptions()
			if tt.mod != nil {
				tt.mod(&opts)
			}
			if _, err := NewQuery(tt.text, opts); !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestNewQuery_TrimsWhitespace(t *testing.T) {
	q, err := NewQuery("  What is the revenue?  ", DefaultQueryOptions())
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	if q.Text() != "What is the revenue?" {
		t.Errorf("text not trimmed: %q", q.Text())
	}
}
