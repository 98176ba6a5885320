// Package storage provides SQLite-based persistence for the command index.
//
// The storage layer manages:
//   - Command entries with descriptions and tags
//   - Vector embeddings for semantic search
//   - An FTS5 full-text index for lexical search
//
// # Database Schema
//
// Tables:
//   - commands: Command entries (uuid id, raw text, annotations, source)
//   - commands_fts: FTS5 index over command text, description and tags
//   - embeddings: One dense vector per command (little-endian float32 blob)
//
// The FTS index is kept in sync with the commands table by triggers, so
// callers never write to it directly. History-derived entries carry a
// unique constraint on their normalized command text.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.local/share/clihunter/commands.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	entry := &types.CommandEntry{
//	    RawCommand:  "git log --oneline -20",
//	    Description: "Show the last 20 commits, one per line",
//	    Tags:        []string{"git", "log"},
//	    Source:      types.SourceUserAdded,
//	}
//	if err := db.PutCommand(ctx, entry); err != nil {
//	    log.Fatal(err)
//	}
//
// # Transactions
//
// Use transactions for atomic multi-record writes, e.g. storing a command
// together with its embedding:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.PutCommand(ctx, entry); err != nil {
//	    return err
//	}
//	if err := tx.UpsertEmbedding(ctx, emb); err != nil {
//	    return err
//	}
//	return tx.Commit()
package storage
