package evaluation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/finsight-ai/finsight/internal/domain"
)

func TestScoreConsistency_IdenticalSamplesExactlyOne(t *testing.T) {
	sampler := &mockSampler{fn: func(context.Context, domain.Query, []domain.Chunk, float32) (domain.Completion, error) {
		return domain.Completion{Text: "Margin was 30.1%."}, nil
	}}
	embed := &mockEmbedder{fn: func(context.Context, string) (domain.EmbeddingResult, error) {
		t.Error("identical texts must not be embedded")
		return domain.EmbeddingResult{}, nil
	}}

	svc := newTestService(nil, sampler, embed)
	got := svc.scoreConsistency(context.Background(), testQuery(t), testChunks(), "Margin was 30.1%.")

	if got.score != 1.0 {
		t.Errorf("score = %v, want exactly 1.0", got.score)
	}
	if got.samples != 2 {
		t.Errorf("samples = %d, want 2", got.samples)
	}
	if got.reduced {
		t.Error("all samples succeeded, must not be reduced")
	}
}

func TestScoreConsistency_DivergentSamples(t *testing.T) {
	calls := 0
	sampler := &mockSampler{fn: func(_ context.Context, _ domain.Query, _ []domain.Chunk, temp float32) (domain.Completion, error) {
		if temp != 0.3 {
			t.Errorf("sample temperature = %v, want 0.3", temp)
		}
		calls++
		return domain.Completion{Text: "variant"}, nil
	}}
	// Primary and variants get orthogonal vectors: cosine 0 → mapped 0.5.
	embed := &mockEmbedder{fn: func(_ context.Context, text string) (domain.EmbeddingResult, error) {
		if text == "primary" {
			return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
		}
		return domain.EmbeddingResult{Embedding: []float32{0, 1}}, nil
	}}

	svc := newTestService(nil, sampler, embed)
	got := svc.scoreConsistency(context.Background(), testQuery(t), testChunks(), "primary")

	// pairs: (primary,variant)=0.5, (primary,variant)=0.5, (variant,variant)=1.0
	want := (0.5 + 0.5 + 1.0) / 3
	if math.Abs(got.score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", got.score, want)
	}
}

func TestScoreConsistency_PartialSampleFailure(t *testing.T) {
	call := 0
	sampler := &mockSampler{fn: func(context.Context, domain.Query, []domain.Chunk, float32) (domain.Completion, error) {
		call++
		if call == 1 {
			return domain.Completion{}, errors.New("sample failed")
		}
		return domain.Completion{Text: "the draft"}, nil
	}}

	svc := newTestService(nil, sampler, nil)
	got := svc.scoreConsistency(context.Background(), testQuery(t), testChunks(), "the draft")

	if got.samples != 1 {
		t.Errorf("samples = %d, want 1", got.samples)
	}
	if !got.reduced {
		t.Error("partial failure must mark result reduced")
	}
	if got.score != 1.0 {
		t.Errorf("score = %v, want 1.0 (identical surviving pair)", got.score)
	}
}

func TestScoreConsistency_AllSamplesFail(t *testing.T) {
	sampler := &mockSampler{fn: func(context.Context, domain.Query, []domain.Chunk, float32) (domain.Completion, error) {
		return domain.Completion{}, errors.New("provider down")
	}}

	svc := newTestService(nil, sampler, nil)
	got := svc.scoreConsistency(context.Background(), testQuery(t), testChunks(), "the draft")

	if got.score != 0.5 {
		t.Errorf("score = %v, want neutral 0.5", got.score)
	}
	if got.samples != 0 || !got.reduced {
		t.Errorf("expected zero samples and reduced flag, got %+v", got)
	}
}
