package ai

import "context"

// Message is a single chat turn sent to a provider
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one text generation call
type Request struct {
	// Model selects the provider: openai, deepseek, anthropic, mistral, openrouter
	Model string
	// ModelName overrides the provider's default model identifier
	// (only meaningful for openrouter, e.g. "mistralai/mistral-large")
	ModelName string
	Messages  []Message
	MaxTokens int
}

// TextGenerator produces an AI response for a prompt. The review pipeline
// depends on this interface so handlers can be tested with a stub.
type TextGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
