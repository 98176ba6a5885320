//go:build !sqlite_cgo
// +build !sqlite_cgo

package storage

// This file is compiled by default and uses a pure Go SQLite
// implementation, so no C compiler is needed.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite (FTS5 built in)

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
