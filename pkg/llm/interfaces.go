// Package llm provides an OpenAI-compatible chat client used by the
// LLM-backed field mapping suggestion provider.
package llm

import (
	"context"
)

// LLMClient defines the chat completion operations the suggestion provider needs.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// GenerateResponseResult holds the completion text and token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Ensure Client implements LLMClient at compile time.
var _ LLMClient = (*Client)(nil)
