package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/clihunter/internal/embedder"
	"github.com/dshills/clihunter/internal/storage"
	"github.com/dshills/clihunter/pkg/types"
)

func newAddCommand(app *App) *cobra.Command {
	var (
		command     string
		description string
		tags        string
	)

	cmd := &cobra.Command{
		Use:   "add -c COMMAND",
		Short: "Add a command to the store",
		Long: "Store a command by hand. Without -d the LLM writes the description\n" +
			"and tags. The entry is embedded for semantic search either way.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(command) == "" {
				return fmt.Errorf("-c/--command is required")
			}
			return runAdd(cmd, app, command, description, tags)
		},
	}

	cmd.Flags().StringVarP(&command, "command", "c", "", "The command line to store")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description (omit to have the LLM write one)")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "Comma-separated tags")
	return cmd
}

func runAdd(cmd *cobra.Command, app *App, command, description, tags string) error {
	store, err := app.OpenStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entry := &types.CommandEntry{
		ID:          types.NewID(),
		RawCommand:  strings.TrimSpace(command),
		Description: strings.TrimSpace(description),
		Tags:        splitTags(tags),
		Source:      types.SourceUserAdded,
	}

	if entry.Description == "" {
		annotator, err := app.NewAnnotator()
		if err != nil {
			return err
		}
		ann, err := annotator.Annotate(cmd.Context(), entry.RawCommand)
		if err != nil {
			return fmt.Errorf("annotation failed: %w", err)
		}
		entry.Description = ann.Description
		if len(entry.Tags) == 0 {
			entry.Tags = ann.Tags
		}
	}

	emb, err := app.NewEmbedder()
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	vec, err := emb.GenerateEmbedding(cmd.Context(), embedder.EmbeddingRequest{Text: entry.EmbeddingText()})
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	tx, err := store.BeginTx(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.PutCommand(cmd.Context(), entry); err != nil {
		return err
	}
	if !vec.IsZero() {
		rec := &storage.Embedding{
			CommandID: entry.ID,
			Vector:    storage.SerializeVector(vec.Vector),
			Dimension: vec.Dimension,
			Provider:  vec.Provider,
			Model:     vec.Model,
		}
		if err := tx.UpsertEmbedding(cmd.Context(), rec); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", entry.ID)
	return nil
}

func newListCommand(app *App) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.ListCommands(cmd.Context(), types.Source(source))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOMMAND\tDESCRIPTION\tTAGS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					e.ID, oneLine(e.RawCommand), oneLine(e.Description), strings.Join(e.Tags, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Filter by source: user_added or history_enriched")
	return cmd
}

func newDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored command and its embedding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteCommand(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("no command with id %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
