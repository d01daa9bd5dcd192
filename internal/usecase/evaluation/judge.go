package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finsight-ai/finsight/internal/domain"
)

const judgePrompt = `You are an expert fact-checker for financial documents.
Evaluate whether each sentence of a generated answer is supported by the source documents.

## SOURCE DOCUMENTS
%s

## GENERATED ANSWER
%s

## ORIGINAL QUESTION
%s

## EVALUATION CRITERIA
For each sentence of the answer containing a factual claim, decide:
- SUPPORTED: directly stated in or logically derivable from the sources
- UNSUPPORTED: no basis in the provided sources
- CONTRADICTED: contradicts information in the sources
Skip sentences with no factual content (greetings, formatting).

## OUTPUT FORMAT (JSON)
{
    "sentences": [
        {"sentence": "...", "verdict": "SUPPORTED|UNSUPPORTED|CONTRADICTED", "evidence": "..."}
    ],
    "reasoning": "..."
}

Evaluate now:`

// judgeVerdict is one sentence-level ruling from the judge model.
type judgeVerdict struct {
	Sentence string `json:"sentence"`
	Verdict  string `json:"verdict"`
	Evidence string `json:"evidence"`
}

type judgeResponse struct {
	Sentences []judgeVerdict `json:"sentences"`
	Reasoning string         `json:"reasoning"`
}

// judgeResult carries the support fraction and the judge's reasoning.
type judgeResult struct {
	support   float64 // fraction of supported sentences in [0,1]
	reasoning string
}

// runJudge asks an independent model call to verify the draft sentence by
// sentence. The support score is the fraction of SUPPORTED verdicts.
func runJudge(ctx context.Context, client CompletionClient, draft string, chunks []domain.Chunk, query string) (judgeResult, error) {
	completion, err := client.Complete(ctx, domain.CompletionRequest{
		User:        fmt.Sprintf(judgePrompt, formatContext(chunks), draft, query),
		Temperature: 0.0,
		JSONMode:    true,
	})
	if err != nil {
		return judgeResult{}, fmt.Errorf("judge call: %w", err)
	}

	var parsed judgeResponse
	if err := json.Unmarshal([]byte(completion.Text), &parsed); err != nil {
		return judgeResult{}, fmt.Errorf("judge response parse: %w", err)
	}

	if len(parsed.Sentences) == 0 {
		// a draft with no factual sentences is trivially supported
		return judgeResult{support: 1.0, reasoning: parsed.Reasoning}, nil
	}

	supported := 0
	for _, v := range parsed.Sentences {
		if strings.EqualFold(v.Verdict, "SUPPORTED") {
			supported++
		}
	}

	return judgeResult{
		support:   float64(supported) / float64(len(parsed.Sentences)),
		reasoning: parsed.Reasoning,
	}, nil
}

func formatContext(chunks []domain.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "[Source %d]\n%s", i+1, c.Text())
	}
	return b.String()
}
