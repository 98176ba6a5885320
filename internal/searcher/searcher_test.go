package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/clihunter/internal/embedder"
	"github.com/dshills/clihunter/internal/storage"
	"github.com/dshills/clihunter/pkg/types"
)

// mockStorage implements storage.Storage with overridable search behavior
type mockStorage struct {
	entries     map[string]*types.CommandEntry
	textResults []storage.TextResult
	textErr     error
	vecResults  []storage.VectorResult
	vecErr      error
	count       int

	lastTextOpts storage.TextSearchOptions
}

func newMockStorage(entries ...*types.CommandEntry) *mockStorage {
	m := &mockStorage{entries: make(map[string]*types.CommandEntry), count: len(entries)}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

func (m *mockStorage) PutCommand(ctx context.Context, e *types.CommandEntry) error { return nil }
func (m *mockStorage) GetCommand(ctx context.Context, id string) (*types.CommandEntry, error) {
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, storage.ErrNotFound
}
func (m *mockStorage) DeleteCommand(ctx context.Context, id string) error { return nil }
func (m *mockStorage) ListCommands(ctx context.Context, source types.Source) ([]*types.CommandEntry, error) {
	return nil, nil
}
func (m *mockStorage) ExistsNormalized(ctx context.Context, normalized string, source types.Source) (bool, error) {
	return false, nil
}
func (m *mockStorage) GetCommandByNormalized(ctx context.Context, normalized string, source types.Source) (*types.CommandEntry, error) {
	return nil, storage.ErrNotFound
}
func (m *mockStorage) CountCommands(ctx context.Context) (int, error) { return m.count, nil }
func (m *mockStorage) UpsertEmbedding(ctx context.Context, emb *storage.Embedding) error {
	return nil
}
func (m *mockStorage) GetEmbedding(ctx context.Context, commandID string) (*storage.Embedding, error) {
	return nil, storage.ErrNotFound
}
func (m *mockStorage) DeleteEmbedding(ctx context.Context, commandID string) error { return nil }
func (m *mockStorage) CountEmbeddings(ctx context.Context) (int, error)            { return 0, nil }
func (m *mockStorage) SearchText(ctx context.Context, query string, opts storage.TextSearchOptions) ([]storage.TextResult, error) {
	m.lastTextOpts = opts
	return m.textResults, m.textErr
}
func (m *mockStorage) SearchVector(ctx context.Context, vector []float32, limit int) ([]storage.VectorResult, error) {
	return m.vecResults, m.vecErr
}
func (m *mockStorage) BeginTx(ctx context.Context) (storage.Tx, error) {
	return nil, errors.New("not supported")
}
func (m *mockStorage) Close() error { return nil }

// mockEmbedder returns a fixed vector and records call counts
type mockEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &embedder.Embedding{Vector: m.vector, Dimension: len(m.vector)}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	return nil, errors.New("not implemented")
}
func (m *mockEmbedder) Dimension() int   { return len(m.vector) }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-model" }
func (m *mockEmbedder) Close() error     { return nil }

func entry(id, raw string) *types.CommandEntry {
	return &types.CommandEntry{
		ID:         id,
		RawCommand: raw,
		Source:     types.SourceUserAdded,
	}
}

func TestSearch_Hybrid(t *testing.T) {
	store := newMockStorage(entry("a", "git log"), entry("b", "git stash"), entry("c", "docker ps"))
	store.textResults = []storage.TextResult{
		{CommandID: "a", Score: 0.9},
		{CommandID: "b", Score: 0.5},
	}
	store.vecResults = []storage.VectorResult{
		{CommandID: "b", Similarity: 0.95},
		{CommandID: "c", Similarity: 0.60},
	}
	emb := &mockEmbedder{vector: []float32{1, 0}}

	s := NewSearcher(store, emb)
	resp, err := s.Search(context.Background(), SearchRequest{Query: "git", Limit: 10})
	require.NoError(t, err)

	// b: 0.4*0 (min of lexical normalizes to 0)... lexical norm: a=1, b=0.
	// semantic norm: b=1, c=0. Scores: a=0.4, b=0.6, c=0.
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "b", resp.Results[0].Entry.ID)
	assert.Equal(t, "a", resp.Results[1].Entry.ID)
	assert.Equal(t, "c", resp.Results[2].Entry.ID)
	assert.InDelta(t, 0.6, resp.Results[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.4, resp.Results[1].RelevanceScore, 1e-9)

	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, 2, resp.Results[1].Rank)
	assert.False(t, resp.Degraded)
	assert.Equal(t, 2, resp.LexicalResults)
	assert.Equal(t, 2, resp.SemanticResults)
}

func TestSearch_HybridRespectsLimit(t *testing.T) {
	store := newMockStorage(entry("a", "one"), entry("b", "two"), entry("c", "three"))
	store.textResults = []storage.TextResult{
		{CommandID: "a", Score: 0.9},
		{CommandID: "b", Score: 0.8},
		{CommandID: "c", Score: 0.7},
	}
	s := NewSearcher(store, &mockEmbedder{vector: []float32{1}})

	resp, err := s.Search(context.Background(), SearchRequest{Query: "x", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}

func TestSearch_Deterministic(t *testing.T) {
	store := newMockStorage(entry("a", "one"), entry("b", "two"))
	// Identical scores force the id tie-break
	store.textResults = []storage.TextResult{
		{CommandID: "b", Score: 0.5},
		{CommandID: "a", Score: 0.5},
	}
	store.vecResults = []storage.VectorResult{
		{CommandID: "a", Similarity: 0.5},
		{CommandID: "b", Similarity: 0.5},
	}
	s := NewSearcher(store, &mockEmbedder{vector: []float32{1}})

	first, err := s.Search(context.Background(), SearchRequest{Query: "x", Limit: 5})
	require.NoError(t, err)
	second, err := s.Search(context.Background(), SearchRequest{Query: "x", Limit: 5})
	require.NoError(t, err)

	require.Len(t, first.Results, 2)
	assert.Equal(t, "a", first.Results[0].Entry.ID)
	assert.Equal(t, "b", first.Results[1].Entry.ID)
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Entry.ID, second.Results[i].Entry.ID)
	}
}

func TestSearch_DegradesWhenSemanticFails(t *testing.T) {
	store := newMockStorage(entry("a", "git log"))
	store.textResults = []storage.TextResult{{CommandID: "a", Score: 0.9}}
	emb := &mockEmbedder{err: errors.New("ollama down")}

	s := NewSearcher(store, emb)
	resp, err := s.Search(context.Background(), SearchRequest{Query: "git", Limit: 5})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].Entry.ID)
}

func TestSearch_DegradesWhenLexicalFails(t *testing.T) {
	store := newMockStorage(entry("a", "git log"))
	store.textErr = errors.New("fts corrupted")
	store.vecResults = []storage.VectorResult{{CommandID: "a", Similarity: 0.8}}

	s := NewSearcher(store, &mockEmbedder{vector: []float32{1}})
	resp, err := s.Search(context.Background(), SearchRequest{Query: "git", Limit: 5})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	require.Len(t, resp.Results, 1)
}

func TestSearch_BothSubSearchesFail(t *testing.T) {
	store := newMockStorage(entry("a", "git log"))
	store.textErr = errors.New("fts corrupted")

	s := NewSearcher(store, &mockEmbedder{err: errors.New("ollama down")})
	_, err := s.Search(context.Background(), SearchRequest{Query: "git", Limit: 5})
	assert.Error(t, err)
}

func TestSearch_EmptyStoreSkipsEmbedder(t *testing.T) {
	store := newMockStorage() // count 0
	emb := &mockEmbedder{vector: []float32{1}}

	s := NewSearcher(store, emb)
	resp, err := s.Search(context.Background(), SearchRequest{Query: "git", Limit: 5})
	require.NoError(t, err)

	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, emb.calls)
}

func TestSearch_BlankQuery(t *testing.T) {
	store := newMockStorage(entry("a", "git log"))
	emb := &mockEmbedder{vector: []float32{1}}

	s := NewSearcher(store, emb)
	resp, err := s.Search(context.Background(), SearchRequest{Query: "   ", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, emb.calls)
}

func TestSearch_LexicalMode(t *testing.T) {
	store := newMockStorage(entry("a", "git log"))
	store.textResults = []storage.TextResult{{CommandID: "a", Score: 0.7}}
	emb := &mockEmbedder{vector: []float32{1}}

	s := NewSearcher(store, emb)
	resp, err := s.Search(context.Background(), SearchRequest{Query: "git", Limit: 5, Mode: SearchModeLexical})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, 0, emb.calls)
	assert.InDelta(t, 0.7, resp.Results[0].LexicalScore, 1e-9)
	assert.Zero(t, resp.Results[0].SemanticScore)
}

func TestSearch_SemanticMode(t *testing.T) {
	store := newMockStorage(entry("a", "git log"))
	store.vecResults = []storage.VectorResult{{CommandID: "a", Similarity: 0.85}}

	s := NewSearcher(store, &mockEmbedder{vector: []float32{1}})
	resp, err := s.Search(context.Background(), SearchRequest{Query: "show commits", Limit: 5, Mode: SearchModeSemantic})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.InDelta(t, 0.85, resp.Results[0].SemanticScore, 1e-9)
	assert.Zero(t, resp.Results[0].LexicalScore)
}

func TestSearch_PrefixLastReachesStorage(t *testing.T) {
	store := newMockStorage(entry("a", "git log"))
	store.textResults = []storage.TextResult{{CommandID: "a", Score: 0.7}}

	s := NewSearcher(store, &mockEmbedder{vector: []float32{1}})
	_, err := s.Search(context.Background(), SearchRequest{
		Query: "git lo", Limit: 5, Mode: SearchModeLexical, PrefixLast: true,
	})
	require.NoError(t, err)
	assert.True(t, store.lastTextOpts.PrefixLast)
}

func TestSearch_InvalidWeight(t *testing.T) {
	s := NewSearcher(newMockStorage(entry("a", "x")), &mockEmbedder{vector: []float32{1}})
	_, err := s.Search(context.Background(), SearchRequest{Query: "x", LexicalWeight: 1.5})
	assert.Error(t, err)
}

func TestSearch_UnsupportedMode(t *testing.T) {
	s := NewSearcher(newMockStorage(entry("a", "x")), &mockEmbedder{vector: []float32{1}})
	_, err := s.Search(context.Background(), SearchRequest{Query: "x", Mode: "fuzzy"})
	assert.Error(t, err)
}

func TestSearch_SkipsDeletedEntries(t *testing.T) {
	store := newMockStorage(entry("a", "git log"))
	store.textResults = []storage.TextResult{
		{CommandID: "gone", Score: 0.9},
		{CommandID: "a", Score: 0.5},
	}

	s := NewSearcher(store, &mockEmbedder{vector: []float32{1}})
	resp, err := s.Search(context.Background(), SearchRequest{Query: "git", Limit: 5, Mode: SearchModeLexical})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].Entry.ID)
	assert.Equal(t, 1, resp.Results[0].Rank)
}

func TestSearch_CacheHit(t *testing.T) {
	store := newMockStorage(entry("a", "git log"))
	store.textResults = []storage.TextResult{{CommandID: "a", Score: 0.7}}
	emb := &mockEmbedder{vector: []float32{1}}

	s := NewSearcher(store, emb)
	req := SearchRequest{Query: "git", Limit: 5, Mode: SearchModeLexical, UseCache: true, CacheTTL: time.Minute}

	first, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	require.Len(t, second.Results, 1)
	assert.Equal(t, "a", second.Results[0].Entry.ID)

	// Invalidating forces a fresh search
	s.InvalidateCache()
	third, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
}

func TestFuseScores_WeightShiftsRanking(t *testing.T) {
	lexical := []storage.TextResult{
		{CommandID: "lex", Score: 0.9},
		{CommandID: "sem", Score: 0.1},
	}
	semantic := []storage.VectorResult{
		{CommandID: "sem", Similarity: 0.9},
		{CommandID: "lex", Similarity: 0.1},
	}

	heavyLexical := fuseScores(lexical, semantic, 0.9)
	assert.Equal(t, "lex", heavyLexical[0].commandID)

	heavySemantic := fuseScores(lexical, semantic, 0.1)
	assert.Equal(t, "sem", heavySemantic[0].commandID)
}

func TestMinMaxNormalize(t *testing.T) {
	assert.Nil(t, minMaxNormalize(nil))

	norm := minMaxNormalize([]float64{2, 4, 6})
	assert.Equal(t, []float64{0, 0.5, 1}, norm)

	// Degenerate rankings normalize to all ones
	assert.Equal(t, []float64{1}, minMaxNormalize([]float64{0.37}))
	assert.Equal(t, []float64{1, 1}, minMaxNormalize([]float64{5, 5}))
}
