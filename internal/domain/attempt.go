package domain

// TokenUsage accumulates model token counters across calls within one run.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	EmbeddingTokens  int
}

// Total returns all tokens consumed.
func (u TokenUsage) Total() int {
	return u.PromptTokens + u.CompletionTokens + u.EmbeddingTokens
}

// Add merges another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.EmbeddingTokens += other.EmbeddingTokens
}

// Attempt is a single draft produced by the generator. Owned by the
// orchestrator; discarded after evaluation unless accepted.
type Attempt struct {
	Number int // starts at 1
	Text   string
	Usage  TokenUsage
}
