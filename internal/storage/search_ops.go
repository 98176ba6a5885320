package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// searchTextWithQuerier performs BM25 full-text search using FTS5
func (s *SQLiteStorage) searchTextWithQuerier(ctx context.Context, q querier, query string, opts TextSearchOptions) ([]TextResult, error) {
	match := buildMatchExpr(query, opts.PrefixLast)
	if match == "" {
		return []TextResult{}, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		return []TextResult{}, nil
	}

	// bm25() is negative with lower values meaning better matches.
	// Recency breaks ties between equally scored commands.
	sqlQuery := `
		SELECT f.command_id, bm25(commands_fts) AS score
		FROM commands_fts f
		INNER JOIN commands c ON c.id = f.command_id
		WHERE commands_fts MATCH ?
		ORDER BY score, c.updated_at DESC, c.id
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, sqlQuery, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var result TextResult
		var bm25 float64
		if err := rows.Scan(&result.CommandID, &bm25); err != nil {
			return nil, err
		}
		// BM25 scores are typically in range [-50, 0]
		result.Score = 1.0 / (1.0 + math.Abs(bm25)/50.0)
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *SQLiteStorage) SearchText(ctx context.Context, query string, opts TextSearchOptions) ([]TextResult, error) {
	return s.searchTextWithQuerier(ctx, s.querier(), query, opts)
}

// searchVectorWithQuerier performs cosine-similarity search over all stored
// embeddings. The corpus is personal-scale, so a full scan in Go beats the
// overhead of an approximate index.
func (s *SQLiteStorage) searchVectorWithQuerier(ctx context.Context, q querier, queryVector []float32, limit int) ([]VectorResult, error) {
	if limit <= 0 || len(queryVector) == 0 {
		return []VectorResult{}, nil
	}

	// An index built with one dimensionality cannot serve queries of
	// another; silently returning nothing would look like "no matches".
	var stored int
	err := q.QueryRowContext(ctx, `SELECT dimension FROM embeddings LIMIT 1`).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return []VectorResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index dimension: %w", err)
	}
	if stored != len(queryVector) {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index has %d",
			ErrDimensionMismatch, len(queryVector), stored)
	}

	rows, err := q.QueryContext(ctx, `SELECT command_id, vector FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]VectorResult, 0, 256)
	for rows.Next() {
		var commandID string
		var blob []byte
		if err := rows.Scan(&commandID, &blob); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // corrupt blob, leave it out of the ranking
		}

		candidates = append(candidates, VectorResult{
			CommandID:  commandID,
			Similarity: cosineSimilarity(queryVector, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].CommandID < candidates[j].CommandID
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

func (s *SQLiteStorage) SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorResult, error) {
	return s.searchVectorWithQuerier(ctx, s.querier(), vector, limit)
}

// buildMatchExpr turns free text into a safe FTS5 MATCH expression. Every
// token is double-quoted so shell-heavy input like "-rf" or "AND" can never
// be parsed as FTS5 syntax. With prefixLast the final token matches any
// completion of itself, which is what live search wants for the word still
// being typed.
func buildMatchExpr(query string, prefixLast bool) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return ""
	}

	parts := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		quoted := `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
		if prefixLast && i == len(tokens)-1 {
			quoted += "*"
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, " ")
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for callers that persist embeddings
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is the inverse of SerializeVector
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}

// BuildMatchExpr is an exported helper for testing
func BuildMatchExpr(query string, prefixLast bool) string {
	return buildMatchExpr(query, prefixLast)
}
