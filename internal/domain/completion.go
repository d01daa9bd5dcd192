package domain

import "context"

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	JSONMode    bool
}

// Completion is the model's answer with token accounting.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// CompletionClient produces chat completions.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Model() string
}
