package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/clihunter/pkg/types"
)

// Common storage errors
var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidEntry is returned when an entry fails validation
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrDimensionMismatch is returned when a vector's dimensionality does
	// not match what the store already holds
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidQuery is returned for malformed search queries
	ErrInvalidQuery = errors.New("invalid query")
)

// Embedding is a stored dense vector for one command entry.
type Embedding struct {
	CommandID string
	Vector    []byte // serialized float32 slice, little-endian
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// TextResult is a single lexical (FTS5/BM25) search hit.
type TextResult struct {
	CommandID string
	Score     float64 // normalized to (0, 1], higher is better
}

// VectorResult is a single semantic search hit.
type VectorResult struct {
	CommandID  string
	Similarity float64 // cosine similarity in [-1, 1]
}

// TextSearchOptions controls lexical search behavior.
type TextSearchOptions struct {
	Limit      int
	PrefixLast bool // treat the final query token as a prefix
}

// Storage defines the persistence interface for command entries,
// their embeddings, and search over both.
type Storage interface {
	// Command operations
	PutCommand(ctx context.Context, entry *types.CommandEntry) error
	GetCommand(ctx context.Context, id string) (*types.CommandEntry, error)
	DeleteCommand(ctx context.Context, id string) error
	ListCommands(ctx context.Context, source types.Source) ([]*types.CommandEntry, error)
	ExistsNormalized(ctx context.Context, normalized string, source types.Source) (bool, error)
	GetCommandByNormalized(ctx context.Context, normalized string, source types.Source) (*types.CommandEntry, error)
	CountCommands(ctx context.Context) (int, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, emb *Embedding) error
	GetEmbedding(ctx context.Context, commandID string) (*Embedding, error)
	DeleteEmbedding(ctx context.Context, commandID string) error
	CountEmbeddings(ctx context.Context) (int, error)

	// Search operations
	SearchText(ctx context.Context, query string, opts TextSearchOptions) ([]TextResult, error)
	SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorResult, error)

	// Transaction support
	BeginTx(ctx context.Context) (Tx, error)

	// Lifecycle
	Close() error
}

// Tx represents a database transaction. All Storage operations performed
// through a Tx are atomic: either Commit persists them all or Rollback
// discards them all.
type Tx interface {
	Storage
	Commit() error
	Rollback() error
}
