package types

// SearchResult represents a single search result with relevance information
type SearchResult struct {
	// Identification
	Entry *CommandEntry
	Rank  int // Position in result set (1-based)

	// Scoring
	RelevanceScore float64 // Fused score from lexical + semantic components
	LexicalScore   float64 // Normalized BM25 component, 0 when absent
	SemanticScore  float64 // Normalized cosine component, 0 when absent
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Entry == nil {
		return ErrEmptyCommand
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	return nil
}
