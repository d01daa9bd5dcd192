package generation

import (
	"fmt"
	"strings"

	"github.com/finsight-ai/finsight/internal/domain"
)

const systemPrompt = `You are a senior financial analyst AI assistant with expertise in SEC filings,
earnings reports, and investment analysis. You provide accurate, well-sourced financial insights.

CRITICAL RULES:
1. ONLY use information from the provided source documents. NEVER fabricate data.
2. Every factual claim MUST include a citation in [Source N] format.
3. If the source documents don't contain enough information, say so explicitly.
4. For numerical data (revenue, EPS, ratios), quote exact figures from sources.
5. Flag any inconsistencies between different source documents.
6. NEVER provide investment advice or recommendations.`

// buildUserPrompt renders the context chunks as numbered sources followed by
// the question. Source numbers match the citation indices assigned at
// retrieval time, so [Source N] markers in the draft resolve directly.
func buildUserPrompt(query string, chunks []domain.Chunk, priorReasoning string) string {
	var b strings.Builder

	b.WriteString("## SOURCE DOCUMENTS\n")
	if len(chunks) == 0 {
		b.WriteString("[No source documents available]\n")
	}
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "[Source %d] (%s, %s)\n%s\n", i+1, c.Document(), c.Section(), c.Text())
	}

	if priorReasoning != "" {
		b.WriteString("\n## PREVIOUS ATTEMPT FEEDBACK\n")
		b.WriteString("A previous answer to this question failed quality evaluation. Reviewer notes:\n")
		b.WriteString(priorReasoning)
		b.WriteString("\nAddress these issues: stick strictly to the sources above and cite every factual claim.\n")
	}

	b.WriteString("\n## USER QUESTION\n")
	b.WriteString(query)

	b.WriteString("\n\n## RESPONSE FORMAT\n")
	b.WriteString("Answer the question using only the sources above, citing every factual claim ")
	b.WriteString("with [Source N] markers. Quote exact figures. State explicitly when the sources ")
	b.WriteString("do not cover part of the question.")

	return b.String()
}
