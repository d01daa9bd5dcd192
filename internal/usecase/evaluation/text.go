package evaluation

import (
	"regexp"
	"strings"
)

// splitSentences breaks a draft into sentences on terminal punctuation.
// Markdown bullets and blank lines also terminate a sentence so list-style
// answers are scored per item.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if len(s) >= 3 {
			sentences = append(sentences, s)
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '.', '!', '?':
			b.WriteRune(r)
			// decimal points and section numbers don't end a sentence
			if r == '.' && i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9' {
				continue
			}
			flush()
		case '\n':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()

	return sentences
}

// Financial entity patterns: dollar amounts, percentages, fiscal periods,
// comma-grouped large numbers.
var (
	dollarPattern  = regexp.MustCompile(`\$[\d,]+\.?\d*\s*[BMKbmk]?(?:illion)?`)
	percentPattern = regexp.MustCompile(`-?[\d.]+%`)
	periodPattern  = regexp.MustCompile(`(?:Q[1-4]\s*\d{4}|FY\s*\d{4}|\b\d{4}\b)`)
	bigNumPattern  = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+(?:\.\d+)?\b`)
)

// extractFinancialEntities pulls dollar amounts, percentages, fiscal periods,
// and comma-grouped figures from text, lowercased for comparison.
func extractFinancialEntities(text string) map[string]struct{} {
	entities := make(map[string]struct{})

	for _, p := range []*regexp.Regexp{dollarPattern, percentPattern, periodPattern, bigNumPattern} {
		for _, m := range p.FindAllString(text, -1) {
			entities[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
		}
	}

	return entities
}

// hedgingPhrases flag uncertainty in a draft. Lowercase substring match.
var hedgingPhrases = []string{
	"it is possible that",
	"may have",
	"could potentially",
	"it appears that",
	"it seems",
	"approximately",
	"roughly",
	"unclear",
	"not enough information",
	"limited data",
	"cannot determine",
	"uncertain",
	"speculative",
}

func containsHedging(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// specificityPatterns mark a sentence as carrying a concrete data point.
var specificityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[\d,]+`),
	regexp.MustCompile(`\d+\.?\d*%`),
	regexp.MustCompile(`(?:Q[1-4]|FY)\s*\d{4}`),
	regexp.MustCompile(`(?i)(?:increased|decreased|grew|declined)\s+(?:by\s+)?\d`),
	regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b`),
}

func isSpecific(sentence string) bool {
	for _, p := range specificityPatterns {
		if p.MatchString(sentence) {
			return true
		}
	}
	return false
}

var citationPattern = regexp.MustCompile(`\[Source (\d+)\]`)

// countCitations returns the number of citation markers in the draft.
func countCitations(text string) int {
	return len(citationPattern.FindAllString(text, -1))
}

// citedIndices returns the distinct 1-based citation indices referenced by
// the draft.
func citedIndices(text string) map[int]struct{} {
	indices := make(map[int]struct{})
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		var idx int
		for _, r := range m[1] {
			idx = idx*10 + int(r-'0')
		}
		indices[idx] = struct{}{}
	}
	return indices
}
