package llm

import (
	"fmt"
	"strings"
)

// Config holds generator configuration
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// New creates a Generator from configuration. An empty provider selects
// Ollama.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama, "":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}
