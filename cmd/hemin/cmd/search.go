package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpgirro/hemin/internal/output"
)

type searchOptions struct {
	page   int
	size   int
	format string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed shows and episodes",
		Long: `Search the full-text index of shows and episodes.

The query is matched against titles, descriptions, show notes, chapter
marks, transcripts and crawled show websites. Results are paged.`,
		Example: `  hemin search "rust async"
  hemin search gophers -p 2 -s 5
  hemin search "interview" --format table
  hemin search "history" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Result page, starting at 1")
	cmd.Flags().IntVarP(&opts.size, "size", "s", 10, "Results per page")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, table")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	st, err := openStores()
	if err != nil {
		return err
	}
	defer st.Close()

	start := time.Now()
	page, err := st.engine.Search(ctx, query, opts.page, opts.size)
	if err != nil {
		return err
	}
	slog.Info("search_complete",
		slog.String("query", query),
		slog.Int("page", opts.page),
		slog.Int("hits", page.TotalHits),
		slog.Duration("duration", time.Since(start)))

	return output.WritePage(cmd.OutOrStdout(), page, format)
}
