package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	cache := NewCache(10)

	emb := &Embedding{
		Vector:    []float32{1, 2, 3},
		Dimension: 3,
		Provider:  ProviderLocal,
		Model:     "local-embeddings",
		Hash:      "abc",
	}
	cache.Set("abc", emb)

	got, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, emb.Vector, got.Vector)
	assert.Equal(t, emb.Dimension, got.Dimension)

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestCache_ReturnsCopy(t *testing.T) {
	cache := NewCache(10)
	cache.Set("abc", &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3})

	first, ok := cache.Get("abc")
	require.True(t, ok)
	first.Vector[0] = 99

	second, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, float32(1), second.Vector[0])
}

func TestCache_LRUEviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set("a", &Embedding{Vector: []float32{1}})
	cache.Set("b", &Embedding{Vector: []float32{2}})
	cache.Set("c", &Embedding{Vector: []float32{3}})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("a")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(10)
	cache.Set("a", &Embedding{Vector: []float32{1}})
	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("hello")
	h2 := ComputeHash("hello")
	h3 := ComputeHash("world")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // hex-encoded SHA-256
}

func TestEmbeddingIsZero(t *testing.T) {
	zero := &Embedding{Vector: make([]float32, 4), Dimension: 4}
	assert.True(t, zero.IsZero())

	nonZero := &Embedding{Vector: []float32{0, 0, 0.001, 0}, Dimension: 4}
	assert.False(t, nonZero.IsZero())

	empty := &Embedding{}
	assert.True(t, empty.IsZero())
}

func TestValidateBatchRequest(t *testing.T) {
	err := ValidateBatchRequest(BatchEmbeddingRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"one"}})
	assert.NoError(t, err)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	// Zero vectors come back unchanged
	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}
