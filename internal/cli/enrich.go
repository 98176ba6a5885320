package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/clihunter/internal/enrich"
	"github.com/dshills/clihunter/internal/history"
)

func newEnrichCommand(app *App) *cobra.Command {
	var (
		shell  string
		file   string
		limit  int
		dryRun bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Import and annotate shell history",
		Long: "Read shell history, filter out noise, and store the interesting\n" +
			"commands with an LLM-generated description, tags, and an embedding.\n" +
			"Already-imported commands are skipped, so re-running is safe;\n" +
			"--force re-annotates and re-embeds them in place.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(cmd, app, shell, file, limit, dryRun, force)
		},
	}

	cmd.Flags().StringVar(&shell, "shell", "", "History format: zsh, bash, or fish (default: detect from $SHELL)")
	cmd.Flags().StringVar(&file, "file", "", "History file path (default: the shell's standard location)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Only consider the most recent N entries (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be enriched without calling the LLM or storing anything")
	cmd.Flags().BoolVar(&force, "force", false, "Re-annotate and re-embed commands already in the store")
	return cmd
}

func runEnrich(cmd *cobra.Command, app *App, shell, file string, limit int, dryRun, force bool) error {
	cfg, err := app.Config()
	if err != nil {
		return err
	}

	sh := history.Shell(shell)
	if shell == "" {
		sh = history.Detect()
	}
	if limit <= 0 {
		limit = cfg.Enrich.HistoryLimit
	}

	entries, err := history.Load(sh, file, limit)
	if err != nil {
		return err
	}
	app.logf("loaded %d history entries (%s)", len(entries), sh)

	store, err := app.OpenStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	opts := enrich.Options{
		Denylist:         cfg.Enrich.Denylist,
		MinCommandLength: cfg.Enrich.MinCommandLength,
		Workers:          cfg.Enrich.Workers,
		Force:            force,
	}

	if dryRun {
		pipeline := enrich.New(store, nil, nil, opts)
		candidates, err := pipeline.Plan(cmd.Context(), entries)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Would enrich %d of %d entries:\n", len(candidates), len(entries))
		for _, c := range candidates {
			fmt.Fprintf(out, "  %s\n", c.Command)
		}
		return nil
	}

	emb, err := app.NewEmbedder()
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	annotator, err := app.NewAnnotator()
	if err != nil {
		return err
	}

	pipeline := enrich.New(store, emb, annotator, opts)
	summary, err := pipeline.Run(cmd.Context(), entries)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Enriched %d, skipped %d, failed %d of %d entries in %s\n",
		summary.Enriched, summary.Skipped, summary.Failed, summary.Raw,
		summary.Duration.Round(10*time.Millisecond))
	for _, msg := range summary.Errors {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}
	return nil
}
