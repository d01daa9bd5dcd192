package index

import (
	"context"
	"errors"
	"testing"

	"github.com/finsight-ai/finsight/internal/db"
	"github.com/finsight-ai/finsight/internal/domain"
)

func TestSearchDenseParsesChunks(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "filings" {
			t.Errorf("index name = %q, want filings", q.IndexName)
		}
		if q.K != 10 {
			t.Errorf("k = %d, want 10", q.K)
		}
		score := false
		for _, f := range q.ReturnFields {
			if f == "__vector_score" {
				score = true
			}
		}
		if !score {
			t.Errorf("dense search must request the vector score, fields = %v", q.ReturnFields)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				chunkEntry("finsight:chunk:aapl-10k-0001", "AAPL 10-K 2024", "Risk Factors", "Revenue grew 8%.", 0.92),
				chunkEntry("finsight:chunk:aapl-10k-0002", "AAPL 10-K 2024", "MD&A", "Margins declined.", 0.84),
			},
		}, nil
	}

	chunks, err := repo.SearchDense(context.Background(), testVector(), domain.Filters{}, 10)
	if err != nil {
		t.Fatalf("SearchDense: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].ID() != "aapl-10k-0001" {
		t.Errorf("chunk ID = %q, want prefix stripped", chunks[0].ID())
	}
	if chunks[0].Origin() != domain.OriginDense {
		t.Errorf("origin = %q, want dense", chunks[0].Origin())
	}
	if chunks[0].Score() != 0.92 {
		t.Errorf("score = %v, want 0.92", chunks[0].Score())
	}
	if chunks[1].Section() != "MD&A" {
		t.Errorf("section = %q, want MD&A", chunks[1].Section())
	}
}

func TestSearchDensePropagatesError(t *testing.T) {
	repo, ms := newTestRepo(t)

	errStore := errors.New("connection refused")
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errStore
	}

	_, err := repo.SearchDense(context.Background(), testVector(), domain.Filters{}, 5)
	if !errors.Is(err, errStore) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSearchSparseAppliesPrefilter(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotPrefilter string
	ms.searchBM25Fn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		gotPrefilter = q.Prefilter
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{
				chunkEntry("finsight:chunk:msft-10q-0005", "MSFT 10-Q Q2", "Liquidity", "Cash was $80B.", 3.1),
			},
		}, nil
	}

	filters := domain.Filters{Company: "MSFT", FilingType: "10-Q"}
	chunks, err := repo.SearchSparse(context.Background(), "cash position", filters, 5)
	if err != nil {
		t.Fatalf("SearchSparse: %v", err)
	}
	want := `@company:{MSFT} @filing_type:{10\-Q}`
	if gotPrefilter != want {
		t.Errorf("prefilter = %q, want %q", gotPrefilter, want)
	}
	if chunks[0].Origin() != domain.OriginSparse {
		t.Errorf("origin = %q, want sparse", chunks[0].Origin())
	}
}

func TestSearchSparseEmptyResult(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchBM25Fn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 0}, nil
	}

	chunks, err := repo.SearchSparse(context.Background(), "no matches", domain.Filters{}, 5)
	if err != nil {
		t.Fatalf("SearchSparse: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks, want 0", len(chunks))
	}
}

func TestBuildPrefilter(t *testing.T) {
	tests := []struct {
		name    string
		filters domain.Filters
		want    string
	}{
		{"empty", domain.Filters{}, ""},
		{"company only", domain.Filters{Company: "AAPL"}, "@company:{AAPL}"},
		{"filing type only", domain.Filters{FilingType: "10-K"}, `@filing_type:{10\-K}`},
		{"both", domain.Filters{Company: "BRK.B", FilingType: "8-K"}, `@company:{BRK\.B} @filing_type:{8\-K}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildPrefilter(tt.filters); got != tt.want {
				t.Errorf("buildPrefilter(%+v) = %q, want %q", tt.filters, got, tt.want)
			}
		})
	}
}
