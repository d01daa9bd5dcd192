package evaluation

import (
	"github.com/finsight-ai/finsight/internal/domain"
)

// scoreConfidence composes four normalized sub-scores: citation density,
// specificity, inverse hedging, and mean fused relevance of the chunks the
// draft actually cites. Weights come from configuration, default equal
// quarters.
func scoreConfidence(draft string, citations []domain.Citation, weights domain.ConfidenceWeights) float64 {
	sentences := splitSentences(draft)
	if len(sentences) == 0 {
		return 0
	}
	total := float64(len(sentences))

	density := min(float64(countCitations(draft))/total, 1.0)

	specific := 0
	hedged := 0
	for _, sentence := range sentences {
		if isSpecific(sentence) {
			specific++
		}
		if containsHedging(sentence) {
			hedged++
		}
	}
	specificity := float64(specific) / total
	hedgingInverse := 1.0 - float64(hedged)/total

	relevance := citedRelevance(draft, citations)

	composite := weights.CitationDensity*density +
		weights.Specificity*specificity +
		weights.Hedging*hedgingInverse +
		weights.RetrievalRelevance*relevance

	return clamp01(composite)
}

// citedRelevance averages the fused relevance of the chunks the draft cites.
// A draft citing nothing scores zero on this component.
func citedRelevance(draft string, citations []domain.Citation) float64 {
	cited := citedIndices(draft)
	if len(cited) == 0 {
		return 0
	}

	var sum float64
	matched := 0
	for _, c := range citations {
		if _, ok := cited[c.Index]; ok {
			sum += c.Relevance
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return clamp01(sum / float64(matched))
}
