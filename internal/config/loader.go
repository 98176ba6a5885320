package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileLoader loads YAML configuration from
// $XDG_CONFIG_HOME/clihunter/config.yaml (overridable via CLIHUNTER_CONFIG).
// Missing files are created with defaults, and CLIHUNTER_* environment
// variables override individual fields after loading.
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path means the default
// location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load reads the config file, writing the defaults first if none exists
func (l *FileLoader) Load() (Config, error) {
	path := l.resolvePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Config{}, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := writeDefault(path, cfg); err != nil {
				return Config{}, err
			}
			return applyEnvOverrides(cfg), nil
		}
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return applyEnvOverrides(hydrateDefaults(cfg)), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return expandPath(l.overridePath)
	}
	if custom := os.Getenv("CLIHUNTER_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return DefaultPath()
}

func writeDefault(path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// hydrateDefaults fills in zero values a hand-edited file may have dropped
func hydrateDefaults(cfg Config) Config {
	def := Default()
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = def.Embedding.Provider
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = def.Embedding.CacheSize
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = def.LLM.Provider
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = def.Search.TopK
	}
	if cfg.Search.Mode == "" {
		cfg.Search.Mode = def.Search.Mode
	}
	if cfg.Search.LexicalWeight == 0 {
		cfg.Search.LexicalWeight = def.Search.LexicalWeight
	}
	if cfg.Search.OverfetchFactor == 0 {
		cfg.Search.OverfetchFactor = def.Search.OverfetchFactor
	}
	if cfg.Enrich.MinCommandLength == 0 {
		cfg.Enrich.MinCommandLength = def.Enrich.MinCommandLength
	}
	if cfg.Enrich.Workers == 0 {
		cfg.Enrich.Workers = def.Enrich.Workers
	}
	return cfg
}

// applyEnvOverrides lets CLIHUNTER_* variables win over the file
func applyEnvOverrides(cfg Config) Config {
	setString(&cfg.Database.Path, "CLIHUNTER_DB_PATH")
	setString(&cfg.Embedding.Provider, "CLIHUNTER_EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "CLIHUNTER_EMBEDDING_MODEL")
	setString(&cfg.Embedding.BaseURL, "CLIHUNTER_OLLAMA_URL")
	setString(&cfg.Embedding.APIKey, "CLIHUNTER_EMBEDDING_API_KEY")
	setInt(&cfg.Embedding.Dimension, "CLIHUNTER_EMBEDDING_DIMENSION")
	setString(&cfg.LLM.Provider, "CLIHUNTER_LLM_PROVIDER")
	setString(&cfg.LLM.Model, "CLIHUNTER_LLM_MODEL")
	setString(&cfg.LLM.BaseURL, "CLIHUNTER_LLM_BASE_URL")
	setString(&cfg.LLM.APIKey, "CLIHUNTER_LLM_API_KEY")
	setInt(&cfg.Search.TopK, "CLIHUNTER_TOP_K")
	setString(&cfg.Search.Mode, "CLIHUNTER_SEARCH_MODE")
	setFloat(&cfg.Search.LexicalWeight, "CLIHUNTER_LEXICAL_WEIGHT")
	setInt(&cfg.Enrich.Workers, "CLIHUNTER_ENRICH_WORKERS")
	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(userHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}
