// Package cli implements the clihunter command surface. Every
// invocation is a short-lived process: flags are parsed, the pieces the
// subcommand needs are wired from configuration, the work runs, and the
// process exits. Live search relies on that statelessness, the picker
// re-invokes the binary on every keystroke.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/clihunter/internal/config"
	"github.com/dshills/clihunter/internal/embedder"
	"github.com/dshills/clihunter/internal/llm"
	"github.com/dshills/clihunter/internal/searcher"
	"github.com/dshills/clihunter/internal/storage"
)

// App carries invocation-level settings and the lazily loaded
// configuration shared by the subcommands.
type App struct {
	ConfigPath string
	Verbose    bool

	cfg *config.Config
}

// NewRootCmd wires the cobra root command
func NewRootCmd() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:   "clihunter",
		Short: "Hybrid search over your shell command history",
		Long: "CliHunter indexes shell commands with full-text and semantic search\n" +
			"and retrieves them by describing what you want in natural language.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file path (default: XDG config dir)")
	root.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Verbose logging to stderr")

	root.AddCommand(newQueryCommand(app))
	root.AddCommand(newEnrichCommand(app))
	root.AddCommand(newAddCommand(app))
	root.AddCommand(newListCommand(app))
	root.AddCommand(newDeleteCommand(app))
	root.AddCommand(newShellCommand(app))
	return root
}

// Config loads and caches the configuration
func (a *App) Config() (config.Config, error) {
	if a.cfg != nil {
		return *a.cfg, nil
	}
	cfg, err := config.NewFileLoader(a.ConfigPath).Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = &cfg
	return cfg, nil
}

// OpenStorage opens the command store at the configured path
func (a *App) OpenStorage() (storage.Storage, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.logf("opened database %s (driver %s)", cfg.Database.Path, storage.DriverName)
	return store, nil
}

// NewEmbedder builds the configured embedding provider
func (a *App) NewEmbedder() (embedder.Embedder, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	a.logf("embedder: %s/%s", emb.Provider(), emb.Model())
	return emb, nil
}

// NewAnnotator builds the LLM annotator used by enrich and add
func (a *App) NewAnnotator() (*llm.Annotator, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	gen, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM generator: %w", err)
	}
	a.logf("llm: %s/%s", gen.Provider(), gen.Model())
	return llm.NewAnnotator(gen), nil
}

// NewSearcher builds a searcher over the given store. The embedder may
// be nil for lexical-only callers.
func (a *App) NewSearcher(store storage.Storage, emb embedder.Embedder) *searcher.Searcher {
	return searcher.NewSearcher(store, emb)
}

func (a *App) logf(format string, args ...any) {
	if a.Verbose {
		log.Printf(format, args...)
	}
}

func init() {
	// stdout carries wire records for the picker, diagnostics go to stderr
	log.SetOutput(os.Stderr)
	log.SetPrefix("clihunter: ")
	log.SetFlags(0)
}
