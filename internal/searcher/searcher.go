package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/clihunter/internal/embedder"
	"github.com/dshills/clihunter/internal/storage"
	"github.com/dshills/clihunter/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeHybrid   SearchMode = "hybrid"   // Lexical + semantic, fused
	SearchModeLexical  SearchMode = "lexical"  // BM25 text search only
	SearchModeSemantic SearchMode = "semantic" // Vector similarity only
)

// Fusion defaults
const (
	DefaultLexicalWeight   = 0.4
	DefaultOverfetchFactor = 3
	DefaultLimit           = 10
	MaxLimit               = 100
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query string
	Limit int
	Mode  SearchMode

	// LexicalWeight is w in the fused score w*lexical + (1-w)*semantic.
	// Zero means the default, which leans semantic.
	LexicalWeight float64

	// OverfetchFactor multiplies Limit for each sub-search before fusion
	OverfetchFactor int

	// PrefixLast treats the final query token as a prefix (live search)
	PrefixLast bool

	UseCache bool
	CacheTTL time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results         []types.SearchResult
	TotalResults    int
	SearchMode      SearchMode
	Duration        time.Duration
	CacheHit        bool
	LexicalResults  int
	SemanticResults int

	// Degraded is set when one hybrid sub-search failed and results come
	// from the other alone
	Degraded bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher coordinates lexical and semantic search over the command store
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage, emb embedder.Embedder) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage:  store,
		embedder: emb,
		cache:    cache,
	}
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	// A blank query matches nothing in any mode
	if strings.TrimSpace(req.Query) == "" {
		return &SearchResponse{SearchMode: req.Mode, Duration: time.Since(startTime)}, nil
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	// An empty store returns immediately, before any embedding call
	count, err := s.storage.CountCommands(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count commands: %w", err)
	}
	if count == 0 {
		return &SearchResponse{SearchMode: req.Mode, Duration: time.Since(startTime)}, nil
	}

	var response *SearchResponse
	switch req.Mode {
	case SearchModeHybrid:
		response, err = s.hybridSearch(ctx, req)
	case SearchModeLexical:
		response, err = s.lexicalSearch(ctx, req)
	case SearchModeSemantic:
		response, err = s.semanticSearch(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	response.SearchMode = req.Mode

	if req.UseCache && len(response.Results) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// subResult holds results from one concurrent sub-search
type subResult struct {
	lexical  []storage.TextResult
	semantic []storage.VectorResult
	err      error
}

// runSemanticSearch embeds the query and runs vector search in a goroutine
func (s *Searcher) runSemanticSearch(ctx context.Context, req SearchRequest, fetch int, resultChan chan<- subResult) {
	var res subResult
	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	switch {
	case err != nil:
		res.err = fmt.Errorf("failed to generate query embedding: %w", err)
	case emb.IsZero():
		// Nothing to rank against
	default:
		res.semantic, res.err = s.storage.SearchVector(ctx, emb.Vector, fetch)
	}
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// runLexicalSearch executes text search in a goroutine
func (s *Searcher) runLexicalSearch(ctx context.Context, req SearchRequest, fetch int, resultChan chan<- subResult) {
	var res subResult
	res.lexical, res.err = s.storage.SearchText(ctx, req.Query, storage.TextSearchOptions{
		Limit:      fetch,
		PrefixLast: req.PrefixLast,
	})
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// hybridSearch runs both sub-searches concurrently and fuses their rankings
// with a weighted sum of min-max normalized scores.
func (s *Searcher) hybridSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	fetch := req.Limit * req.OverfetchFactor

	lexicalChan := make(chan subResult, 1)
	semanticChan := make(chan subResult, 1)

	go s.runLexicalSearch(ctx, req, fetch, lexicalChan)
	go s.runSemanticSearch(ctx, req, fetch, semanticChan)

	var lexicalRes, semanticRes subResult
	var lexicalDone, semanticDone bool
	for !lexicalDone || !semanticDone {
		select {
		case lexicalRes = <-lexicalChan:
			lexicalDone = true
		case semanticRes = <-semanticChan:
			semanticDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// One sub-search may fail, both failing is fatal
	if lexicalRes.err != nil && semanticRes.err != nil {
		return nil, fmt.Errorf("both searches failed: lexical=%w, semantic=%v", lexicalRes.err, semanticRes.err)
	}
	degraded := lexicalRes.err != nil || semanticRes.err != nil

	fused := fuseScores(lexicalRes.lexical, semanticRes.semantic, req.LexicalWeight)
	results, err := s.fetchResults(ctx, fused, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:         results,
		TotalResults:    len(results),
		LexicalResults:  len(lexicalRes.lexical),
		SemanticResults: len(semanticRes.semantic),
		Degraded:        degraded,
	}, nil
}

// lexicalSearch performs only BM25 text search
func (s *Searcher) lexicalSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	textResults, err := s.storage.SearchText(ctx, req.Query, storage.TextSearchOptions{
		Limit:      req.Limit,
		PrefixLast: req.PrefixLast,
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]fusedResult, len(textResults))
	for i, tr := range textResults {
		ranked[i] = fusedResult{
			commandID: tr.CommandID,
			score:     tr.Score,
			lexical:   tr.Score,
		}
	}

	results, err := s.fetchResults(ctx, ranked, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:        results,
		TotalResults:   len(results),
		LexicalResults: len(textResults),
	}, nil
}

// semanticSearch performs only vector similarity search
func (s *Searcher) semanticSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	if emb.IsZero() {
		return &SearchResponse{}, nil
	}

	vectorResults, err := s.storage.SearchVector(ctx, emb.Vector, req.Limit)
	if err != nil {
		return nil, err
	}

	ranked := make([]fusedResult, len(vectorResults))
	for i, vr := range vectorResults {
		ranked[i] = fusedResult{
			commandID: vr.CommandID,
			score:     vr.Similarity,
			semantic:  vr.Similarity,
		}
	}

	results, err := s.fetchResults(ctx, ranked, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:         results,
		TotalResults:    len(results),
		SemanticResults: len(vectorResults),
	}, nil
}

// fusedResult is one command with its combined and component scores
type fusedResult struct {
	commandID string
	score     float64
	lexical   float64
	semantic  float64
}

// fuseScores combines the two sub-rankings. Each ranking's scores are
// min-max normalized to [0,1] so BM25 and cosine magnitudes become
// comparable, then summed as w*lexical + (1-w)*semantic. A command missing
// from one ranking contributes 0 for that component. Ties break on id so
// identical corpora always rank identically.
func fuseScores(lexical []storage.TextResult, semantic []storage.VectorResult, weight float64) []fusedResult {
	lexScores := make([]float64, len(lexical))
	for i, tr := range lexical {
		lexScores[i] = tr.Score
	}
	semScores := make([]float64, len(semantic))
	for i, vr := range semantic {
		semScores[i] = vr.Similarity
	}
	lexNorm := minMaxNormalize(lexScores)
	semNorm := minMaxNormalize(semScores)

	byID := make(map[string]*fusedResult, len(lexical)+len(semantic))
	for i, tr := range lexical {
		byID[tr.CommandID] = &fusedResult{commandID: tr.CommandID, lexical: lexNorm[i]}
	}
	for i, vr := range semantic {
		fr, ok := byID[vr.CommandID]
		if !ok {
			fr = &fusedResult{commandID: vr.CommandID}
			byID[vr.CommandID] = fr
		}
		fr.semantic = semNorm[i]
	}

	results := make([]fusedResult, 0, len(byID))
	for _, fr := range byID {
		fr.score = weight*fr.lexical + (1-weight)*fr.semantic
		results = append(results, *fr)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].commandID < results[j].commandID
	})

	return results
}

// minMaxNormalize maps scores to [0,1]. A ranking where every score is
// equal (including a single result) normalizes to all ones.
func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	normalized := make([]float64, len(scores))
	if max == min {
		for i := range normalized {
			normalized[i] = 1.0
		}
		return normalized
	}
	for i, s := range scores {
		normalized[i] = (s - min) / (max - min)
	}
	return normalized
}

// fetchResults loads full entries for the top fused results
func (s *Searcher) fetchResults(ctx context.Context, ranked []fusedResult, limit int) ([]types.SearchResult, error) {
	if limit > len(ranked) {
		limit = len(ranked)
	}

	results := make([]types.SearchResult, 0, limit)
	for i := 0; i < len(ranked) && len(results) < limit; i++ {
		fr := ranked[i]

		entry, err := s.storage.GetCommand(ctx, fr.commandID)
		if err != nil {
			continue // Entry deleted between ranking and fetch
		}

		results = append(results, types.SearchResult{
			Entry:          entry,
			Rank:           len(results) + 1,
			RelevanceScore: fr.score,
			LexicalScore:   fr.lexical,
			SemanticScore:  fr.semantic,
		})
	}

	return results, nil
}

// validateRequest ensures search request is valid, applying defaults
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.Mode == "" {
		req.Mode = SearchModeHybrid
	}
	if req.LexicalWeight == 0 {
		req.LexicalWeight = DefaultLexicalWeight
	}
	if req.LexicalWeight < 0 || req.LexicalWeight > 1 {
		return fmt.Errorf("lexical weight %v outside [0,1]", req.LexicalWeight)
	}
	if req.OverfetchFactor < 2 {
		req.OverfetchFactor = DefaultOverfetchFactor
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour
	}
	if req.Mode == SearchModeHybrid && s.embedder == nil {
		return fmt.Errorf("embedder not initialized")
	}
	if req.Mode == SearchModeSemantic && s.embedder == nil {
		return fmt.Errorf("embedder not initialized")
	}
	return nil
}

// checkCache looks up a still-valid cached response
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops all cached responses. Called after writes to the
// store so stale rankings never surface.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := &SearchResponse{
		TotalResults:    src.TotalResults,
		SearchMode:      src.SearchMode,
		Duration:        src.Duration,
		CacheHit:        src.CacheHit,
		LexicalResults:  src.LexicalResults,
		SemanticResults: src.SemanticResults,
		Degraded:        src.Degraded,
		Results:         make([]types.SearchResult, len(src.Results)),
	}

	for i, result := range src.Results {
		dst.Results[i] = result
		if result.Entry != nil {
			entryCopy := *result.Entry
			entryCopy.Tags = append([]string(nil), result.Entry.Tags...)
			dst.Results[i].Entry = &entryCopy
		}
	}

	return dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|%.3f|%d|%t", req.Limit, req.LexicalWeight, req.OverfetchFactor, req.PrefixLast)
	return sha256.Sum256([]byte(data.String()))
}
