package domain

import "context"

// CompletionResult is the text and usage returned by an LLM completion.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completer produces natural-language completions.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (CompletionResult, error)
}

// HealthChecker is implemented by providers that can probe upstream health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
