package policy

import (
	"regexp"
	"strings"

	"github.com/finsight-ai/finsight/internal/metrics"
)

// Violation types.
const (
	ViolationInvestmentAdvice = "investment_advice"
	ViolationForwardLooking   = "forward_looking_statement"
)

// Violation severities.
const (
	SeverityBlock = "block"
	SeverityWarn  = "warn"
)

// Violation is one detected content-policy match.
type Violation struct {
	Type        string
	Severity    string
	MatchedText string
}

// Result is the outcome of one filter pass.
type Result struct {
	Text            string
	Violations      []Violation
	Stripped        int
	DisclaimerAdded bool
	Blocked         bool
}

var investmentAdvicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:you\s+should|we\s+recommend|i\s+suggest)\s+(?:buy|sell|hold|invest)`),
	regexp.MustCompile(`(?i)\b(?:strong\s+buy|must\s+buy|sell\s+immediately|avoid\s+this\s+stock)`),
	regexp.MustCompile(`(?i)\b(?:buy\s+rating|sell\s+rating|outperform|underperform)\b`),
	regexp.MustCompile(`(?i)\b(?:target\s+price|price\s+target)\s*(?:of|is|:)\s*\$`),
}

var forwardLookingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwill\s+(?:likely|probably|definitely)\s+(?:increase|decrease|grow|decline)`),
	regexp.MustCompile(`(?i)\b(?:expected\s+to|projected\s+to|forecast\s+to|anticipated\s+to)\b`),
	regexp.MustCompile(`(?i)\bfuture\s+(?:revenue|earnings|growth|performance)`),
	regexp.MustCompile(`(?i)\bguidance\s+(?:of|for|suggests|indicates)`),
}

const forwardLookingDisclaimer = "\n\n---\n*This analysis contains forward-looking statements based on " +
	"company filings. Actual results may differ materially. This is not " +
	"investment advice.*"

// Filter applies financial content policy to generated answers: sentences
// containing investment advice are stripped, and a regulatory disclaimer is
// appended when forward-looking language is detected.
type Filter struct {
	enabled bool
}

func New(enabled bool) *Filter {
	return &Filter{enabled: enabled}
}

// Apply filters text against the content policy. Blocked is set when
// stripping advice sentences leaves no answer body.
func (f *Filter) Apply(text string) Result {
	if !f.enabled {
		return Result{Text: text}
	}

	res := Result{}
	sentences := splitSentences(text)

	var kept []string
	for _, s := range sentences {
		if m := matchAny(investmentAdvicePatterns, s); m != "" {
			res.Violations = append(res.Violations, Violation{
				Type:        ViolationInvestmentAdvice,
				Severity:    SeverityBlock,
				MatchedText: m,
			})
			res.Stripped++
			continue
		}
		kept = append(kept, s)
	}

	filtered := strings.Join(kept, " ")
	if strings.TrimSpace(filtered) == "" {
		res.Blocked = true
	}

	for _, p := range forwardLookingPatterns {
		if m := p.FindString(filtered); m != "" {
			res.Violations = append(res.Violations, Violation{
				Type:        ViolationForwardLooking,
				Severity:    SeverityWarn,
				MatchedText: m,
			})
		}
	}
	if !res.Blocked {
		for _, v := range res.Violations {
			if v.Type == ViolationForwardLooking {
				filtered += forwardLookingDisclaimer
				res.DisclaimerAdded = true
				break
			}
		}
	}

	for _, v := range res.Violations {
		metrics.PolicyViolationsTotal.WithLabelValues(v.Type, v.Severity).Inc()
	}

	res.Text = filtered
	return res
}

func matchAny(patterns []*regexp.Regexp, s string) string {
	for _, p := range patterns {
		if m := p.FindString(s); m != "" {
			return m
		}
	}
	return ""
}

// splitSentences breaks text on terminal punctuation, keeping the
// punctuation with its sentence. Paragraph breaks also end a sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		switch r {
		case '.', '!', '?':
			// A digit on both sides means a decimal point, not a boundary.
			if r == '.' && i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1]) {
				continue
			}
			flush()
		case '\n':
			flush()
		}
	}
	flush()
	return sentences
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
