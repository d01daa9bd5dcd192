package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finsight-ai/finsight/internal/domain"
)

type mockClient struct {
	completeFn func(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

func (m *mockClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return domain.Completion{Text: "ok"}, nil
}

func (m *mockClient) Model() string { return "test-model" }

func testQuery(t *testing.T) domain.Query {
	t.Helper()
	q, err := domain.NewQuery("How did operating margin change year over year?", domain.DefaultQueryOptions())
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	return q
}

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		domain.NewChunk("c1", "AAPL 10-K 2024", "MD&A", "Operating margin was 30.1%.", 0.9, domain.OriginBoth),
		domain.NewChunk("c2", "AAPL 10-K 2023", "MD&A", "Operating margin was 29.8%.", 0.7, domain.OriginDense),
	}
}

func TestGenerate_BuildsNumberedSources(t *testing.T) {
	var gotReq domain.CompletionRequest
	client := &mockClient{completeFn: func(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
		gotReq = req
		return domain.Completion{Text: "Margin rose 0.3pp [Source 1].", PromptTokens: 100, CompletionTokens: 20}, nil
	}}

	svc := New(client, 0.1)
	got, err := svc.Generate(context.Background(), testQuery(t), testChunks(), "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Text != "Margin rose 0.3pp [Source 1]." {
		t.Errorf("text = %q", got.Text)
	}
	if !strings.Contains(gotReq.User, "[Source 1] (AAPL 10-K 2024, MD&A)") {
		t.Errorf("prompt missing numbered source header:\n%s", gotReq.User)
	}
	if !strings.Contains(gotReq.User, "[Source 2]") {
		t.Error("prompt missing second source")
	}
	if strings.Contains(gotReq.User, "PREVIOUS ATTEMPT FEEDBACK") {
		t.Error("first attempt must not carry failure feedback")
	}
	if gotReq.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", gotReq.Temperature)
	}
}

func TestGenerate_RegenerationCarriesReasoning(t *testing.T) {
	var gotReq domain.CompletionRequest
	client := &mockClient{completeFn: func(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
		gotReq = req
		return domain.Completion{Text: "Grounded answer [Source 2]."}, nil
	}}

	svc := New(client, 0.1)
	_, err := svc.Generate(context.Background(), testQuery(t), testChunks(), "entity overlap low: $5B not found in sources")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gotReq.User, "PREVIOUS ATTEMPT FEEDBACK") {
		t.Error("regeneration prompt missing feedback section")
	}
	if !strings.Contains(gotReq.User, "$5B not found in sources") {
		t.Error("regeneration prompt missing reviewer notes")
	}
}

func TestGenerate_RetriesOnceOnInvalidCitation(t *testing.T) {
	calls := 0
	client := &mockClient{completeFn: func(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
		calls++
		if calls == 1 {
			return domain.Completion{Text: "Revenue was $100B [Source 9].", PromptTokens: 50, CompletionTokens: 10}, nil
		}
		if !strings.Contains(req.User, "[Source 1]") {
			t.Error("recovery call must reuse the same context set")
		}
		return domain.Completion{Text: "Revenue was $100B [Source 1].", PromptTokens: 50, CompletionTokens: 12}, nil
	}}

	svc := New(client, 0.1)
	got, err := svc.Generate(context.Background(), testQuery(t), testChunks(), "")
	if err != nil {
		t.Fatalf("expected recovery call to replace the invalid draft, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("model called %d times, want 2", calls)
	}
	if got.Text != "Revenue was $100B [Source 1]." {
		t.Errorf("text = %q, want the recovered draft", got.Text)
	}
	if got.PromptTokens != 100 || got.CompletionTokens != 22 {
		t.Errorf("usage = %d/%d, want both calls counted (100/22)", got.PromptTokens, got.CompletionTokens)
	}
}

func TestGenerate_RejectsOutOfRangeCitation(t *testing.T) {
	calls := 0
	client := &mockClient{completeFn: func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		calls++
		return domain.Completion{Text: "Revenue was $100B [Source 9]."}, nil
	}}

	svc := New(client, 0.1)
	_, err := svc.Generate(context.Background(), testQuery(t), testChunks(), "")
	if !errors.Is(err, domain.ErrInvalidCitation) {
		t.Fatalf("expected ErrInvalidCitation, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("model called %d times, want one recovery call before failing", calls)
	}
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("invalid citation must classify as generation failure, got %v", err)
	}

	var citErr *domain.CitationError
	if !errors.As(err, &citErr) {
		t.Fatalf("expected CitationError, got %v", err)
	}
	if citErr.Index != 9 || citErr.Supplied != 2 {
		t.Errorf("citation error = %+v, want index 9 of 2", citErr)
	}
}

func TestGenerate_RejectsSourceZero(t *testing.T) {
	client := &mockClient{completeFn: func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		return domain.Completion{Text: "See [Source 0]."}, nil
	}}

	svc := New(client, 0.1)
	_, err := svc.Generate(context.Background(), testQuery(t), testChunks(), "")
	if !errors.Is(err, domain.ErrInvalidCitation) {
		t.Fatalf("expected ErrInvalidCitation, got %v", err)
	}
}

func TestGenerate_AllowsUncitedDraft(t *testing.T) {
	client := &mockClient{completeFn: func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		return domain.Completion{Text: "The sources do not cover this topic."}, nil
	}}

	svc := New(client, 0.1)
	if _, err := svc.Generate(context.Background(), testQuery(t), testChunks(), ""); err != nil {
		t.Fatalf("zero citations is valid, got %v", err)
	}
}

func TestGenerate_WrapsModelError(t *testing.T) {
	client := &mockClient{completeFn: func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		return domain.Completion{}, domain.ErrModelProvider
	}}

	svc := New(client, 0.1)
	_, err := svc.Generate(context.Background(), testQuery(t), testChunks(), "")
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}

	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "generation" {
		t.Fatalf("expected generation stage error, got %v", err)
	}
}

func TestSample_SkipsCitationValidation(t *testing.T) {
	client := &mockClient{completeFn: func(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
		if req.Temperature != 0.3 {
			t.Errorf("sample temperature = %v, want 0.3", req.Temperature)
		}
		return domain.Completion{Text: "Variant with bad marker [Source 42]."}, nil
	}}

	svc := New(client, 0.1)
	got, err := svc.Sample(context.Background(), testQuery(t), testChunks(), 0.3)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got.Text == "" {
		t.Error("empty sample text")
	}
}

func TestValidateCitations(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		supplied int
		wantErr  bool
	}{
		{"in range", "a [Source 1] b [Source 3]", 3, false},
		{"no markers", "plain text answer", 3, false},
		{"out of range", "[Source 4]", 3, true},
		{"zero", "[Source 0]", 3, true},
		{"empty context", "[Source 1]", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCitations(tt.text, tt.supplied)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCitations(%q, %d) error = %v, wantErr %v", tt.text, tt.supplied, err, tt.wantErr)
			}
		})
	}
}
