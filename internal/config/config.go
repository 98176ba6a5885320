package config

import (
	"os"
	"path/filepath"
)

// AppName is used for XDG directory layout
const AppName = "clihunter"

// Config is the full application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Enrich    EnrichConfig    `yaml:"enrich"`
}

// DatabaseConfig locates the command store
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`  // ollama, openai, local
	Model     string `yaml:"model"`     // empty selects the provider default
	BaseURL   string `yaml:"base_url"`  // Ollama server URL
	APIKey    string `yaml:"api_key"`   // OpenAI key, env usually wins
	Dimension int    `yaml:"dimension"` // 0 selects the provider default
	CacheSize int    `yaml:"cache_size"`
}

// LLMConfig selects the text generation backend for enrichment
type LLMConfig struct {
	Provider string `yaml:"provider"` // ollama, openai
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
}

// SearchConfig tunes the hybrid ranker
type SearchConfig struct {
	TopK            int     `yaml:"top_k"`
	Mode            string  `yaml:"mode"`           // hybrid, lexical, semantic
	LexicalWeight   float64 `yaml:"lexical_weight"` // w in [0,1], semantic gets 1-w
	OverfetchFactor int     `yaml:"overfetch_factor"`
}

// EnrichConfig tunes the history enrichment pipeline
type EnrichConfig struct {
	Denylist         []string `yaml:"denylist"`
	MinCommandLength int      `yaml:"min_command_length"`
	Workers          int      `yaml:"workers"`
	HistoryLimit     int      `yaml:"history_limit"` // most recent N lines, 0 for all
}

// Default returns the documented default configuration. The denylist is the
// set of interactive or trivial commands not worth indexing on their own.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir(), "commands.db"),
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "mxbai-embed-large",
			BaseURL:   "http://localhost:11434",
			Dimension: 1024,
			CacheSize: 10000,
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
		},
		Search: SearchConfig{
			TopK:            10,
			Mode:            "hybrid",
			LexicalWeight:   0.4,
			OverfetchFactor: 3,
		},
		Enrich: EnrichConfig{
			Denylist: []string{
				"ls", "cd", "pwd", "clear", "exit", "history", "man",
				"top", "htop", "vim", "vi", "nano", "code", "source",
				"echo", "which", "export", "clihunter",
			},
			MinCommandLength: 5,
			Workers:          4,
			HistoryLimit:     1000,
		},
	}
}

// ConfigDir returns the XDG config directory for the application
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	return filepath.Join(userHomeDir(), ".config", AppName)
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	return filepath.Join(userHomeDir(), ".local", "share", AppName)
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
