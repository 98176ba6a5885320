package llm

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrProviderFailed      = errors.New("llm provider failed")
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
	ErrNoAPIKey            = errors.New("llm api key not set")
	ErrEmptyResponse       = errors.New("llm returned no content")
)

// GenerateRequest is a single text generation request
type GenerateRequest struct {
	Prompt      string
	System      string // Optional system prompt
	Temperature float64
	MaxTokens   int
	JSON        bool // Ask the model for a single JSON object
}

// Generator produces text completions. Implementations wrap one backend
// (Ollama, OpenAI-compatible) behind the same request shape.
type Generator interface {
	GenerateText(ctx context.Context, req GenerateRequest) (string, error)

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the generator
	Close() error
}
