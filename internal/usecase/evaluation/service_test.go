package evaluation

import (
	"context"
	"fmt"
	"testing"

	"github.com/finsight-ai/finsight/internal/domain"
)

func allSupportedJudge(n int) *mockJudge {
	verdicts := ""
	for i := range n {
		if i > 0 {
			verdicts += ","
		}
		verdicts += fmt.Sprintf(`{"sentence":"s%d","verdict":"SUPPORTED"}`, i)
	}
	return judgeReply(`{"sentences":[` + verdicts + `],"reasoning":"grounded"}`)
}

func TestEvaluate_CleanDraftPasses(t *testing.T) {
	svc := newTestService(allSupportedJudge(2), nil, nil)

	draft := "Revenue was $391,035 million [Source 1]. Margin was 30.1% in FY2024 [Source 2]."
	got := svc.Evaluate(context.Background(), testQuery(t), draft, testChunks(), testCitations())

	if got.Status != domain.StatusPassed {
		t.Fatalf("status = %q (flags %v), want passed", got.Status, got.Flags)
	}
	if got.HallucinationScore >= 0.4 {
		t.Errorf("hallucination score = %v, want < 0.4", got.HallucinationScore)
	}
	if got.SemanticConsistency != 1.0 {
		t.Errorf("consistency = %v, want 1.0 (identical mock samples)", got.SemanticConsistency)
	}
	if len(got.Flags) != 0 {
		t.Errorf("unexpected flags: %v", got.Flags)
	}
}

func TestEvaluate_MidBandFlagged(t *testing.T) {
	// 2 of 4 sentences unsupported → judge 0.5; draft entities absent from
	// context → entity 0; semantic 1.0 → support 0.5 → hallucination 0.5.
	judge := judgeReply(`{"sentences":[
		{"sentence":"a","verdict":"SUPPORTED"},
		{"sentence":"b","verdict":"SUPPORTED"},
		{"sentence":"c","verdict":"UNSUPPORTED"},
		{"sentence":"d","verdict":"UNSUPPORTED"}
	],"reasoning":"half unsupported"}`)
	svc := newTestService(judge, nil, nil)

	draft := "Margin was 99.9% [Source 1]."
	got := svc.Evaluate(context.Background(), testQuery(t), draft, testChunks(), testCitations())

	if got.Status != domain.StatusFlagged {
		t.Fatalf("status = %q, want flagged", got.Status)
	}
	if !got.HasFlag(domain.FlagHighHallucination) {
		t.Errorf("missing high hallucination flag, got %v", got.Flags)
	}
}

func TestEvaluate_HardFail(t *testing.T) {
	judge := judgeReply(`{"sentences":[
		{"sentence":"a","verdict":"UNSUPPORTED"},
		{"sentence":"b","verdict":"CONTRADICTED"}
	],"reasoning":"fabricated"}`)
	// Orthogonal embeddings drive the semantic signal to 0.5; fabricated
	// entities drive entity overlap to 0.
	embed := &mockEmbedder{fn: func(_ context.Context, text string) (domain.EmbeddingResult, error) {
		if text == testChunks()[0].Text() || text == testChunks()[1].Text() {
			return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
		}
		return domain.EmbeddingResult{Embedding: []float32{0, 1}}, nil
	}}
	svc := newTestService(judge, nil, embed)

	draft := "Margin was 99.9% and revenue $5,000,001 [Source 1]."
	got := svc.Evaluate(context.Background(), testQuery(t), draft, testChunks(), testCitations())

	// support = (0 + 0 + 0.5)/3 ≈ 0.167 → hallucination ≈ 0.833 ≥ τ_fail
	if got.Status != domain.StatusFailed {
		t.Fatalf("status = %q (score %v), want failed", got.Status, got.HallucinationScore)
	}
	if got.HallucinationScore < 0.7 {
		t.Errorf("hallucination score = %v, want ≥ 0.7", got.HallucinationScore)
	}
}

func TestEvaluate_LowConfidenceFlagsEvenWhenGrounded(t *testing.T) {
	svc := newTestService(allSupportedJudge(1), nil, nil)

	// Grounded sentence (no fabricated entities) but zero citations, vague,
	// and hedged: confidence collapses below the floor.
	draft := "It seems performance was uncertain overall."
	got := svc.Evaluate(context.Background(), testQuery(t), draft, testChunks(), testCitations())

	if got.Status != domain.StatusFlagged {
		t.Fatalf("status = %q, want flagged", got.Status)
	}
	if !got.HasFlag(domain.FlagLowConfidence) {
		t.Errorf("missing low confidence flag, got %v", got.Flags)
	}
}

func TestEvaluate_ConsistencyDisabled(t *testing.T) {
	sampler := &mockSampler{}
	svc := newTestService(allSupportedJudge(1), sampler, nil)

	opts := domain.DefaultQueryOptions()
	opts.EnableSelfConsistency = false
	q, err := domain.NewQuery("What drove the margin change?", opts)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}

	draft := "Margin was 30.1% in FY2024 [Source 1]."
	got := svc.Evaluate(context.Background(), q, draft, testChunks(), testCitations())

	if sampler.calls != 0 {
		t.Errorf("sampler called %d times with consistency disabled", sampler.calls)
	}
	if got.HasFlag(domain.FlagLowConsistency) {
		t.Error("consistency flag set despite sampling being disabled")
	}
}

func TestEvaluate_ReducedSignalsFlag(t *testing.T) {
	judge := &mockJudge{fn: func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		return domain.Completion{}, fmt.Errorf("judge down")
	}}
	svc := newTestService(judge, nil, nil)

	draft := "Margin was 30.1% in FY2024 [Source 1]."
	got := svc.Evaluate(context.Background(), testQuery(t), draft, testChunks(), testCitations())

	if !got.HasFlag(domain.FlagReducedSignals) {
		t.Errorf("missing reduced signals flag, got %v", got.Flags)
	}
}

func TestNeedsRegeneration(t *testing.T) {
	svc := newTestService(nil, nil, nil)

	tests := []struct {
		score float64
		want  bool
	}{
		{0.1, false}, // clean
		{0.39, false},
		{0.4, true}, // regeneration band
		{0.55, true},
		{0.69, true},
		{0.7, false}, // hard fail, no retry
		{0.9, false},
	}
	for _, tt := range tests {
		got := svc.NeedsRegeneration(domain.EvaluationResult{HallucinationScore: tt.score})
		if got != tt.want {
			t.Errorf("NeedsRegeneration(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
