// Package history reads shell history files into raw command candidates
// for the enrichment pipeline. Zsh extended history, bash with
// HISTTIMEFORMAT comment timestamps, and fish's YAML-ish layout are
// supported.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Shell identifies a supported shell
type Shell string

const (
	ShellZsh  Shell = "zsh"
	ShellBash Shell = "bash"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned for shells without a parser
var ErrUnsupportedShell = errors.New("unsupported shell")

// Entry is one raw history line with its timestamp when the format
// records one.
type Entry struct {
	Command   string
	Timestamp *int64 // Unix seconds, nil when the format carries none
}

// DefaultPath returns the conventional history file location for a shell.
// Zsh honors HISTFILE.
func DefaultPath(shell Shell) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	switch shell {
	case ShellZsh:
		if histfile := os.Getenv("HISTFILE"); histfile != "" {
			return histfile, nil
		}
		return filepath.Join(home, ".zsh_history"), nil
	case ShellBash:
		return filepath.Join(home, ".bash_history"), nil
	case ShellFish:
		return filepath.Join(home, ".local", "share", "fish", "fish_history"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedShell, shell)
	}
}

// Load reads and parses a history file. An empty path means the shell's
// default location. When limit is positive only the most recent entries
// are returned.
func Load(shell Shell, path string, limit int) ([]Entry, error) {
	if path == "" {
		var err error
		path, err = DefaultPath(shell)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []Entry
	switch shell {
	case ShellZsh:
		entries = ParseZsh(string(data))
	case ShellBash:
		entries = ParseBash(string(data))
	case ShellFish:
		entries = ParseFish(string(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedShell, shell)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Detect guesses the current shell from $SHELL, defaulting to zsh
func Detect() Shell {
	shell := filepath.Base(os.Getenv("SHELL"))
	switch shell {
	case "bash":
		return ShellBash
	case "fish":
		return ShellFish
	default:
		return ShellZsh
	}
}

func dropEmpty(entries []Entry) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if strings.TrimSpace(e.Command) != "" {
			out = append(out, e)
		}
	}
	return out
}
