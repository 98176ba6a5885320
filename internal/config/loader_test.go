package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedding.Model)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, "hybrid", cfg.Search.Mode)
	assert.InDelta(t, 0.4, cfg.Search.LexicalWeight, 1e-9)
	assert.Equal(t, 3, cfg.Search.OverfetchFactor)
	assert.Equal(t, 5, cfg.Enrich.MinCommandLength)
	assert.Contains(t, cfg.Enrich.Denylist, "ls")

	// The file now exists with the same content
	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /tmp/custom.db
search:
  top_k: 25
  mode: lexical
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Search.TopK)
	assert.Equal(t, "lexical", cfg.Search.Mode)

	// Unset fields fall back to defaults
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.InDelta(t, 0.4, cfg.Search.LexicalWeight, 1e-9)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CLIHUNTER_DB_PATH", "/tmp/env.db")
	t.Setenv("CLIHUNTER_EMBEDDING_PROVIDER", "local")
	t.Setenv("CLIHUNTER_TOP_K", "7")
	t.Setenv("CLIHUNTER_LEXICAL_WEIGHT", "0.6")

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 7, cfg.Search.TopK)
	assert.InDelta(t, 0.6, cfg.Search.LexicalWeight, 1e-9)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [not: a map"), 0o600))

	_, err := NewFileLoader(path).Load()
	assert.Error(t, err)
}

func TestResolvePath_EnvConfig(t *testing.T) {
	t.Setenv("CLIHUNTER_CONFIG", "/tmp/custom-config.yaml")
	loader := NewFileLoader("")
	assert.Equal(t, "/tmp/custom-config.yaml", loader.resolvePath())
}

func TestDefault_DenylistCoversInteractiveCommands(t *testing.T) {
	cfg := Default()
	for _, cmd := range []string{"cd", "vim", "clear", "exit"} {
		assert.Contains(t, cfg.Enrich.Denylist, cmd)
	}
	assert.Equal(t, 4, cfg.Enrich.Workers)
}
