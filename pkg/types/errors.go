package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyCommand  = errors.New("raw command cannot be empty")
	ErrInvalidSource = errors.New("invalid entry source")

	// Search result errors
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
)
