package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/clihunter/internal/storage"
	"github.com/dshills/clihunter/pkg/types"
)

// setupEnv points the CLI at a throwaway config and database and selects
// the deterministic local embedder so no network is touched.
func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLIHUNTER_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("CLIHUNTER_DB_PATH", filepath.Join(dir, "commands.db"))
	t.Setenv("CLIHUNTER_EMBEDDING_PROVIDER", "local")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAddListDelete(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "add",
		"-c", "docker compose up -d",
		"-d", "Start services in the background",
		"-t", "docker,compose")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Added "))
	id := strings.TrimSpace(strings.TrimPrefix(out, "Added "))
	require.NotEmpty(t, id)

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "docker compose up -d")
	assert.Contains(t, out, "Start services in the background")
	assert.Contains(t, out, id)

	out, err = runCLI(t, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+id)

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, id)
}

func TestAddRequiresCommand(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "add", "-d", "description without a command")
	assert.Error(t, err)
}

func TestDeleteUnknownID(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "delete", "no-such-id")
	assert.Error(t, err)
}

func TestQueryLive(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "add", "-c", "git stash pop", "-d", "Restore stashed changes", "-t", "git")
	require.NoError(t, err)
	_, err = runCLI(t, "add", "-c", "docker ps -a", "-d", "List all containers", "-t", "docker")
	require.NoError(t, err)

	out, err := runCLI(t, "query", "--live", "--", "git sta")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 1)
	fields := strings.Split(lines[0], unitSeparator)
	require.Len(t, fields, 4)
	assert.Equal(t, "git stash pop", fields[0])
	assert.Equal(t, "Restore stashed changes", fields[1])
	assert.Equal(t, "git", fields[2])
}

func TestQueryNoMatchesIsEmpty(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "add", "-c", "git stash pop", "-d", "Restore stashed changes")
	require.NoError(t, err)

	out, err := runCLI(t, "query", "--live", "--", "kubernetes")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestQueryBlankIsEmpty(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "query", "--live", "--", "")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestQueryHybridWithLocalEmbedder(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "add", "-c", "tar -xzf archive.tar.gz", "-d", "Extract a gzipped tarball", "-t", "tar")
	require.NoError(t, err)

	out, err := runCLI(t, "query", "extract tarball")
	require.NoError(t, err)
	assert.Contains(t, out, "tar -xzf archive.tar.gz")
}

func TestEnrichDryRun(t *testing.T) {
	setupEnv(t)

	dir := t.TempDir()
	histFile := filepath.Join(dir, "zsh_history")
	data := ": 1700000000:0;kubectl get pods -A\n: 1700000001:0;ls\n"
	require.NoError(t, os.WriteFile(histFile, []byte(data), 0o600))

	out, err := runCLI(t, "enrich", "--shell", "zsh", "--file", histFile, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Would enrich 1 of 2 entries")
	assert.Contains(t, out, "kubectl get pods -A")
}

func TestEnrichDryRunForce(t *testing.T) {
	setupEnv(t)

	// seed a history-sourced entry the default plan would skip
	store, err := storage.NewSQLiteStorage(os.Getenv("CLIHUNTER_DB_PATH"))
	require.NoError(t, err)
	require.NoError(t, store.PutCommand(context.Background(), &types.CommandEntry{
		RawCommand: "kubectl get pods -A",
		Source:     types.SourceHistory,
	}))
	require.NoError(t, store.Close())

	dir := t.TempDir()
	histFile := filepath.Join(dir, "zsh_history")
	data := ": 1700000000:0;kubectl get pods -A\n"
	require.NoError(t, os.WriteFile(histFile, []byte(data), 0o600))

	out, err := runCLI(t, "enrich", "--shell", "zsh", "--file", histFile, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Would enrich 0 of 1 entries")

	out, err = runCLI(t, "enrich", "--shell", "zsh", "--file", histFile, "--dry-run", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Would enrich 1 of 1 entries")
	assert.Contains(t, out, "kubectl get pods -A")
}

func TestShellSnippet(t *testing.T) {
	out, err := runCLI(t, "shell", "--shell", "zsh")
	require.NoError(t, err)
	assert.Contains(t, out, "bindkey '^G'")
	assert.Contains(t, out, "clihunter query --live")

	out, err = runCLI(t, "shell", "--shell", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, `bind -x`)

	_, err = runCLI(t, "shell", "--shell", "fish")
	assert.Error(t, err)
}
