package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/clihunter/internal/searcher"
)

func newQueryCommand(app *App) *cobra.Command {
	var (
		topK int
		mode string
		live bool
	)

	cmd := &cobra.Command{
		Use:   "query [text...]",
		Short: "Search the command store",
		Long: "Search stored commands by intent. One-shot mode runs the configured\n" +
			"hybrid ranking; --live runs a fast lexical prefix search suited to\n" +
			"re-invocation on every keystroke.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runQuery(cmd, app, query, topK, mode, live)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Maximum results (default from config)")
	cmd.Flags().StringVar(&mode, "mode", "", "Search mode: hybrid, lexical, or semantic (default from config)")
	cmd.Flags().BoolVar(&live, "live", false, "Live mode: lexical search with prefix expansion on the last token")
	return cmd
}

func runQuery(cmd *cobra.Command, app *App, query string, topK int, mode string, live bool) error {
	cfg, err := app.Config()
	if err != nil {
		writeErrorSentinel(cmd.OutOrStdout(), err)
		return err
	}
	if topK <= 0 {
		topK = cfg.Search.TopK
	}
	if mode == "" {
		mode = cfg.Search.Mode
	}

	store, err := app.OpenStorage()
	if err != nil {
		writeErrorSentinel(cmd.OutOrStdout(), err)
		return err
	}
	defer func() { _ = store.Close() }()

	req := searcher.SearchRequest{
		Query:           query,
		Limit:           topK,
		Mode:            searcher.SearchMode(mode),
		LexicalWeight:   cfg.Search.LexicalWeight,
		OverfetchFactor: cfg.Search.OverfetchFactor,
	}

	if live {
		// Keystroke path: skip the embedder entirely, lexical search
		// with the trailing token widened to a prefix match.
		req.Mode = searcher.SearchModeLexical
		req.PrefixLast = true
	}

	var s *searcher.Searcher
	if req.Mode == searcher.SearchModeLexical {
		s = app.NewSearcher(store, nil)
	} else {
		emb, err := app.NewEmbedder()
		if err != nil {
			writeErrorSentinel(cmd.OutOrStdout(), err)
			return err
		}
		defer func() { _ = emb.Close() }()
		s = app.NewSearcher(store, emb)
	}

	resp, err := s.Search(cmd.Context(), req)
	if err != nil {
		writeErrorSentinel(cmd.OutOrStdout(), err)
		return err
	}
	if resp.Degraded {
		app.logf("search degraded: one ranking component failed")
	}

	return writeRecords(cmd.OutOrStdout(), resp.Results)
}
