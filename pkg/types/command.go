package types

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies how a command entry entered the store
type Source string

const (
	// SourceUserAdded marks entries the user saved explicitly
	SourceUserAdded Source = "user_added"
	// SourceHistory marks entries produced by the history enrichment pipeline
	SourceHistory Source = "history_enriched"
)

// CommandEntry is the unit of storage and retrieval: a shell command plus
// the natural-language annotation that makes it searchable
type CommandEntry struct {
	// Identification
	ID         string
	RawCommand string

	// Annotation (absent until enriched)
	Description string
	Tags        []string

	// Provenance
	Source    Source
	HistoryTS *int64 // Unix timestamp from shell history, nullable

	// Timestamps (server-assigned)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewID returns a fresh unique entry identifier
func NewID() string {
	return uuid.NewString()
}

// Validate checks the invariants required before a store write
func (e *CommandEntry) Validate() error {
	if strings.TrimSpace(e.RawCommand) == "" {
		return ErrEmptyCommand
	}
	switch e.Source {
	case SourceUserAdded, SourceHistory:
		return nil
	default:
		return ErrInvalidSource
	}
}

// SearchText returns the text the lexical index covers for this entry
func (e *CommandEntry) SearchText() string {
	parts := []string{e.RawCommand}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	if len(e.Tags) > 0 {
		parts = append(parts, strings.Join(e.Tags, " "))
	}
	return strings.Join(parts, "\n")
}

// EmbeddingText returns the text the entry's embedding is derived from:
// the description when present, the raw command otherwise
func (e *CommandEntry) EmbeddingText() string {
	if e.Description != "" {
		return e.Description
	}
	return e.RawCommand
}

// SortedTags returns the tag set in deterministic order
func (e *CommandEntry) SortedTags() []string {
	tags := make([]string, len(e.Tags))
	copy(tags, e.Tags)
	sort.Strings(tags)
	return tags
}

// NormalizeCommand collapses a raw command to its deduplication key:
// trimmed, with internal whitespace runs reduced to single spaces
func NormalizeCommand(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// BaseCommand extracts the leading program name from a command line,
// skipping sudo and VAR=value environment assignments
func BaseCommand(raw string) string {
	for _, field := range strings.Fields(raw) {
		if field == "sudo" || strings.Contains(field, "=") {
			continue
		}
		return field
	}
	return ""
}
