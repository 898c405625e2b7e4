// Package llm defines the provider-agnostic interface used by phase content
// generators to produce workshop copy (prompts, scripts, summaries).
package llm

import "context"

// Provider is the abstraction over any LLM backend (Anthropic, OpenAI,
// Ollama via the OpenAI-compatible API).
type Provider interface {
	// Complete sends a single prompt and returns the model's text.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the provider identifier (e.g. "anthropic").
	Name() string
}

// Request is one completion request.
type Request struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int // 0 = provider default.
}

// Response is the model's reply.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}
