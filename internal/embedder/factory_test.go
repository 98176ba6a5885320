package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Ollama(t *testing.T) {
	emb, err := New(Config{Provider: "ollama", CacheSize: 10})
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, ProviderOllama, emb.Provider())
	assert.Equal(t, DefaultOllamaModel, emb.Model())
	assert.Equal(t, OllamaDimension, emb.Dimension())
}

func TestNew_DefaultsToOllama(t *testing.T) {
	emb, err := New(Config{})
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, ProviderOllama, emb.Provider())
}

func TestNew_OllamaCustomModel(t *testing.T) {
	emb, err := New(Config{Provider: "ollama", Model: "nomic-embed-text", Dimension: 768})
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, "nomic-embed-text", emb.Model())
	assert.Equal(t, 768, emb.Dimension())
}

func TestNew_OpenAI(t *testing.T) {
	emb, err := New(Config{Provider: "openai", APIKey: "test-key"})
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, ProviderOpenAI, emb.Provider())
	assert.Equal(t, DefaultOpenAIModel, emb.Model())
}

func TestNew_Local(t *testing.T) {
	emb, err := New(Config{Provider: "local"})
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, ProviderLocal, emb.Provider())
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "huggingface"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestNew_CaseInsensitive(t *testing.T) {
	emb, err := New(Config{Provider: "OLLAMA"})
	require.NoError(t, err)
	defer emb.Close()
	assert.Equal(t, ProviderOllama, emb.Provider())
}

func TestDetectProvider(t *testing.T) {
	t.Setenv("CLIHUNTER_EMBEDDING_PROVIDER", "")
	t.Setenv(EnvOpenAIAPIKey, "")
	assert.Equal(t, ProviderOllama, DetectProvider())

	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	assert.Equal(t, ProviderOpenAI, DetectProvider())

	t.Setenv("CLIHUNTER_EMBEDDING_PROVIDER", "Local")
	assert.Equal(t, ProviderLocal, DetectProvider())
}

func TestNewFromEnv_ExplicitProvider(t *testing.T) {
	t.Setenv("CLIHUNTER_EMBEDDING_PROVIDER", "local")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer emb.Close()
	assert.Equal(t, ProviderLocal, emb.Provider())
}

func TestNewFromEnv_UnknownProvider(t *testing.T) {
	t.Setenv("CLIHUNTER_EMBEDDING_PROVIDER", "bogus")

	_, err := NewFromEnv()
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}
