package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Model     string
	BaseURL   string // Ollama server URL
	APIKey    string // OpenAI key
	Dimension int    // Expected vector dimension, 0 for the provider default
	CacheSize int
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderOllama, "":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Dimension, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
// 1. CLIHUNTER_EMBEDDING_PROVIDER (ollama, openai, local)
// 2. OPENAI_API_KEY present selects openai
// 3. Default to a local Ollama server
func NewFromEnv() (Embedder, error) {
	cache := NewCache(10000) // Default cache size

	provider := strings.ToLower(os.Getenv("CLIHUNTER_EMBEDDING_PROVIDER"))
	switch provider {
	case ProviderOllama:
		return NewOllamaProvider(os.Getenv("CLIHUNTER_OLLAMA_URL"), os.Getenv("CLIHUNTER_EMBEDDING_MODEL"), 0, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider("", os.Getenv("CLIHUNTER_EMBEDDING_MODEL"), cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	case "":
		// fall through to auto-detect
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return NewOpenAIProvider("", "", cache)
	}
	return NewOllamaProvider(os.Getenv("CLIHUNTER_OLLAMA_URL"), "", 0, cache)
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv("CLIHUNTER_EMBEDDING_PROVIDER")
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderOllama
}
