// Package types provides shared type definitions for CliHunter.
//
// This package defines the domain types used across the storage, search,
// and enrichment components.
//
// # Core Types
//
// CommandEntry represents a saved shell command plus the natural-language
// annotation that makes it retrievable by intent:
//
//	entry := &types.CommandEntry{
//	    ID:          types.NewID(),
//	    RawCommand:  "tar -czvf backup.tar.gz /my/data",
//	    Description: "create a compressed tar archive of /my/data",
//	    Tags:        []string{"backup", "archive"},
//	    Source:      types.SourceUserAdded,
//	}
//
// Entries carry a Source marking how they entered the store. History-derived
// entries are deduplicated by their normalized command text:
//
//	types.NormalizeCommand("  git   status ")  // "git status"
//
// # Search Results
//
// SearchResult combines an entry with relevance scoring:
//
//	result := &types.SearchResult{
//	    Entry:          entry,
//	    Rank:           1,
//	    RelevanceScore: 0.92,
//	}
//
// Relevance scores are normalized to [0, 1] range, with higher values
// indicating better matches.
package types
