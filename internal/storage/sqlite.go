package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/clihunter/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance, applying any
// pending schema migrations.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Command operations

// putCommandWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) putCommandWithQuerier(ctx context.Context, q querier, entry *types.CommandEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.ID == "" {
		entry.ID = types.NewID()
	}

	tagsJSON, err := json.Marshal(entry.SortedTags())
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	query := `
		INSERT INTO commands (id, raw_command, normalized, description, tags, source, history_ts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			raw_command = excluded.raw_command,
			normalized = excluded.normalized,
			description = excluded.description,
			tags = excluded.tags,
			source = excluded.source,
			history_ts = excluded.history_ts,
			updated_at = excluded.updated_at
	`
	_, err = q.ExecContext(ctx, query,
		entry.ID, entry.RawCommand, types.NormalizeCommand(entry.RawCommand),
		entry.Description, string(tagsJSON), string(entry.Source),
		historyTSArg(entry.HistoryTS), entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: normalized command already stored", ErrDuplicate)
		}
		return fmt.Errorf("failed to put command: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) PutCommand(ctx context.Context, entry *types.CommandEntry) error {
	return s.putCommandWithQuerier(ctx, s.querier(), entry)
}

const commandColumns = `id, raw_command, description, tags, source, history_ts, created_at, updated_at`

func scanCommand(scan func(dest ...interface{}) error) (*types.CommandEntry, error) {
	var entry types.CommandEntry
	var tagsJSON string
	var historyTS sql.NullInt64
	err := scan(
		&entry.ID, &entry.RawCommand, &entry.Description, &tagsJSON,
		&entry.Source, &historyTS, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &entry.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if historyTS.Valid {
		ts := historyTS.Int64
		entry.HistoryTS = &ts
	}
	return &entry, nil
}

// getCommandWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getCommandWithQuerier(ctx context.Context, q querier, id string) (*types.CommandEntry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+commandColumns+` FROM commands WHERE id = ?`, id)
	entry, err := scanCommand(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *SQLiteStorage) GetCommand(ctx context.Context, id string) (*types.CommandEntry, error) {
	return s.getCommandWithQuerier(ctx, s.querier(), id)
}

// deleteCommandWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteCommandWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM commands WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete command: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteCommand(ctx context.Context, id string) error {
	return s.deleteCommandWithQuerier(ctx, s.querier(), id)
}

// listCommandsWithQuerier is the internal implementation that uses a querier.
// An empty source lists everything.
func (s *SQLiteStorage) listCommandsWithQuerier(ctx context.Context, q querier, source types.Source) ([]*types.CommandEntry, error) {
	query := `SELECT ` + commandColumns + ` FROM commands`
	args := []interface{}{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, string(source))
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*types.CommandEntry
	for rows.Next() {
		entry, err := scanCommand(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStorage) ListCommands(ctx context.Context, source types.Source) ([]*types.CommandEntry, error) {
	return s.listCommandsWithQuerier(ctx, s.querier(), source)
}

// existsNormalizedWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) existsNormalizedWithQuerier(ctx context.Context, q querier, normalized string, source types.Source) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM commands WHERE normalized = ? AND source = ?)`,
		normalized, string(source)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check normalized command: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStorage) ExistsNormalized(ctx context.Context, normalized string, source types.Source) (bool, error) {
	return s.existsNormalizedWithQuerier(ctx, s.querier(), normalized, source)
}

// getByNormalizedWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getByNormalizedWithQuerier(ctx context.Context, q querier, normalized string, source types.Source) (*types.CommandEntry, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+commandColumns+` FROM commands WHERE normalized = ? AND source = ? LIMIT 1`,
		normalized, string(source))
	entry, err := scanCommand(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *SQLiteStorage) GetCommandByNormalized(ctx context.Context, normalized string, source types.Source) (*types.CommandEntry, error) {
	return s.getByNormalizedWithQuerier(ctx, s.querier(), normalized, source)
}

// countCommandsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) countCommandsWithQuerier(ctx context.Context, q querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count commands: %w", err)
	}
	return count, nil
}

func (s *SQLiteStorage) CountCommands(ctx context.Context) (int, error) {
	return s.countCommandsWithQuerier(ctx, s.querier())
}

// Embedding operations

// upsertEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, emb *Embedding) error {
	if emb.CommandID == "" {
		return fmt.Errorf("%w: embedding has no command id", ErrInvalidEntry)
	}
	if emb.Dimension <= 0 || len(emb.Vector) != emb.Dimension*4 {
		return fmt.Errorf("%w: vector length %d does not match dimension %d",
			ErrDimensionMismatch, len(emb.Vector), emb.Dimension)
	}

	// The index holds vectors of a single dimensionality. A mismatch means
	// the embedding model changed without a reindex.
	var storedDim int
	err := q.QueryRowContext(ctx, `SELECT dimension FROM embeddings LIMIT 1`).Scan(&storedDim)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read stored dimension: %w", err)
	}
	if err == nil && storedDim != emb.Dimension {
		return fmt.Errorf("%w: index holds %d-dimensional vectors, got %d",
			ErrDimensionMismatch, storedDim, emb.Dimension)
	}

	query := `
		INSERT INTO embeddings (command_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(command_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			created_at = excluded.created_at
	`
	now := time.Now().UTC()
	_, err = q.ExecContext(ctx, query,
		emb.CommandID, emb.Vector, emb.Dimension, emb.Provider, emb.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	emb.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, emb *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), emb)
}

// getEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, commandID string) (*Embedding, error) {
	query := `
		SELECT command_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE command_id = ?
	`
	var emb Embedding
	err := q.QueryRowContext(ctx, query, commandID).Scan(
		&emb.CommandID, &emb.Vector, &emb.Dimension, &emb.Provider, &emb.Model, &emb.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emb, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, commandID string) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), commandID)
}

// deleteEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteEmbeddingWithQuerier(ctx context.Context, q querier, commandID string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM embeddings WHERE command_id = ?`, commandID)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteEmbedding(ctx context.Context, commandID string) error {
	return s.deleteEmbeddingWithQuerier(ctx, s.querier(), commandID)
}

// countEmbeddingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) countEmbeddingsWithQuerier(ctx context.Context, q querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

func (s *SQLiteStorage) CountEmbeddings(ctx context.Context) (int, error) {
	return s.countEmbeddingsWithQuerier(ctx, s.querier())
}

func historyTSArg(ts *int64) interface{} {
	if ts == nil {
		return nil
	}
	return *ts
}

// sqliteTx wraps a SQL transaction. It satisfies Storage by routing every
// operation through the transaction's querier.
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) PutCommand(ctx context.Context, entry *types.CommandEntry) error {
	return t.storage.putCommandWithQuerier(ctx, t.tx, entry)
}

func (t *sqliteTx) GetCommand(ctx context.Context, id string) (*types.CommandEntry, error) {
	return t.storage.getCommandWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) DeleteCommand(ctx context.Context, id string) error {
	return t.storage.deleteCommandWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) ListCommands(ctx context.Context, source types.Source) ([]*types.CommandEntry, error) {
	return t.storage.listCommandsWithQuerier(ctx, t.tx, source)
}

func (t *sqliteTx) ExistsNormalized(ctx context.Context, normalized string, source types.Source) (bool, error) {
	return t.storage.existsNormalizedWithQuerier(ctx, t.tx, normalized, source)
}

func (t *sqliteTx) GetCommandByNormalized(ctx context.Context, normalized string, source types.Source) (*types.CommandEntry, error) {
	return t.storage.getByNormalizedWithQuerier(ctx, t.tx, normalized, source)
}

func (t *sqliteTx) CountCommands(ctx context.Context) (int, error) {
	return t.storage.countCommandsWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, emb *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.tx, emb)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, commandID string) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.tx, commandID)
}

func (t *sqliteTx) DeleteEmbedding(ctx context.Context, commandID string) error {
	return t.storage.deleteEmbeddingWithQuerier(ctx, t.tx, commandID)
}

func (t *sqliteTx) CountEmbeddings(ctx context.Context) (int, error) {
	return t.storage.countEmbeddingsWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) SearchText(ctx context.Context, query string, opts TextSearchOptions) ([]TextResult, error) {
	return t.storage.searchTextWithQuerier(ctx, t.tx, query, opts)
}

func (t *sqliteTx) SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorResult, error) {
	return t.storage.searchVectorWithQuerier(ctx, t.tx, vector, limit)
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions are not supported")
}

func (t *sqliteTx) Close() error {
	return t.tx.Rollback()
}
