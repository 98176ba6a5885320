//go:build sqlite_cgo
// +build sqlite_cgo

package storage

// This file is compiled with the sqlite_cgo tag. The cgo driver is
// noticeably faster on large histories.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_cgo sqlite_fts5" ./...
//
// Driver used: github.com/mattn/go-sqlite3 (requires the sqlite_fts5
// build tag for full-text search)

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
