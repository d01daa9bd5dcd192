package policy

import (
	"strings"
	"testing"
)

func TestApply_CleanTextUntouched(t *testing.T) {
	in := "Revenue was $391,035 million in FY2024 [Source 1]. Gross margin reached 46.2% [Source 2]."

	res := New(true).Apply(in)

	if res.Text != in {
		t.Errorf("clean text changed: %q", res.Text)
	}
	if len(res.Violations) != 0 || res.Stripped != 0 || res.Blocked {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestApply_StripsInvestmentAdvice(t *testing.T) {
	in := "Revenue grew 8% [Source 1]. You should buy this stock now. Margins held at 46% [Source 2]."

	res := New(true).Apply(in)

	if strings.Contains(res.Text, "buy") {
		t.Errorf("advice survived filtering: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Revenue grew 8% [Source 1].") ||
		!strings.Contains(res.Text, "Margins held at 46% [Source 2].") {
		t.Errorf("factual sentences lost: %q", res.Text)
	}
	if res.Stripped != 1 {
		t.Errorf("stripped = %d, want 1", res.Stripped)
	}
	if res.Blocked {
		t.Error("blocked despite surviving body")
	}
	if len(res.Violations) != 1 || res.Violations[0].Type != ViolationInvestmentAdvice ||
		res.Violations[0].Severity != SeverityBlock {
		t.Errorf("violations = %+v", res.Violations)
	}
}

func TestApply_AdvicePatterns(t *testing.T) {
	cases := []string{
		"We recommend sell before earnings.",
		"This is a strong buy at current levels.",
		"Analysts assign a buy rating here.",
		"The price target is $250 per share.",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			res := New(true).Apply(in)
			if res.Stripped != 1 {
				t.Errorf("stripped = %d for %q", res.Stripped, in)
			}
		})
	}
}

func TestApply_BlocksWhenNothingSurvives(t *testing.T) {
	in := "You should buy immediately. We recommend buy before the split."

	res := New(true).Apply(in)

	if !res.Blocked {
		t.Fatal("expected Blocked when every sentence is stripped")
	}
	if res.Stripped != 2 {
		t.Errorf("stripped = %d, want 2", res.Stripped)
	}
	if res.DisclaimerAdded {
		t.Error("disclaimer added to blocked response")
	}
}

func TestApply_ForwardLookingDisclaimer(t *testing.T) {
	in := "Revenue is expected to grow 10% next year [Source 1]."

	res := New(true).Apply(in)

	if !res.DisclaimerAdded {
		t.Fatal("expected disclaimer")
	}
	if !strings.Contains(res.Text, "forward-looking statements") {
		t.Errorf("disclaimer text missing: %q", res.Text)
	}
	if !strings.HasPrefix(res.Text, in) {
		t.Errorf("original text altered: %q", res.Text)
	}
	if res.Stripped != 0 || res.Blocked {
		t.Errorf("unexpected result: %+v", res)
	}
	var warn int
	for _, v := range res.Violations {
		if v.Type == ViolationForwardLooking && v.Severity == SeverityWarn {
			warn++
		}
	}
	if warn == 0 {
		t.Errorf("no forward-looking violation recorded: %+v", res.Violations)
	}
}

func TestApply_DisclaimerAddedOnce(t *testing.T) {
	in := "Earnings are projected to increase. Future revenue will depend on guidance for the segment."

	res := New(true).Apply(in)

	if n := strings.Count(res.Text, "forward-looking statements"); n != 1 {
		t.Errorf("disclaimer appears %d times", n)
	}
}

func TestApply_DecimalsDoNotSplitSentences(t *testing.T) {
	in := "Margin was 46.2% and you should buy now."

	res := New(true).Apply(in)

	// The whole line is one sentence carrying advice, so nothing survives.
	if !res.Blocked {
		t.Errorf("expected block, got %+v", res)
	}
}

func TestApply_DisabledPassthrough(t *testing.T) {
	in := "You should buy this stock."

	res := New(false).Apply(in)

	if res.Text != in || res.Stripped != 0 || res.Blocked {
		t.Errorf("disabled filter altered input: %+v", res)
	}
}
