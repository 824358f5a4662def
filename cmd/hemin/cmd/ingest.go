package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	herrors "github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/feed"
	"github.com/mpgirro/hemin/internal/ingest"
	"github.com/mpgirro/hemin/internal/output"
	"github.com/mpgirro/hemin/internal/ui"
)

type ingestOptions struct {
	opml       []string
	noProgress bool
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest [url|file]...",
		Short: "Ingest podcast feeds into the catalog and index",
		Long: `Download, parse and index podcast feeds.

Arguments that name an existing file are read from disk; everything else
is treated as a feed URL. OPML subscription lists are expanded with --opml.
A failing feed is reported and skipped without aborting the others.`,
		Example: `  hemin ingest https://example.com/feed.xml
  hemin ingest ./downloads/feed.rss
  hemin ingest --opml subscriptions.opml --no-progress`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(opts.opml) == 0 {
				return herrors.ValidationError("nothing to ingest", nil).
					WithSuggestion("Pass feed URLs, feed files or --opml <file>")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.opml, "opml", nil, "OPML subscription list to ingest (repeatable)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress display and print a summary only")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, args []string, opts ingestOptions) error {
	out := output.New(cmd.OutOrStdout())

	urls, files := splitSources(args)
	for _, path := range opts.opml {
		listed, err := readOPML(path)
		if err != nil {
			return err
		}
		urls = append(urls, listed...)
	}

	st, err := openStoresForWrite(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	renderer := ui.Discard
	if !opts.noProgress {
		renderer = ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
			ui.WithNoColor(ui.DetectNoColor()),
			ui.WithSource(sourceLabel(args, opts.opml))))
	}
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("progress_renderer_failed", slog.String("error", err.Error()))
		renderer = ui.Discard
	}

	p, err := st.newPipeline(renderer)
	if err != nil {
		_ = renderer.Stop()
		return err
	}

	var reports []*ingest.Report
	if len(urls) > 0 {
		r, err := p.Ingest(ctx, urls)
		if err != nil {
			_ = renderer.Stop()
			return err
		}
		reports = append(reports, r)
	}
	for _, path := range files {
		r, err := p.IngestFile(ctx, path)
		if err != nil {
			_ = renderer.Stop()
			return err
		}
		reports = append(reports, r)
	}
	_ = renderer.Stop()

	total := mergeReports(reports)
	if opts.noProgress {
		printReport(out, total)
	}
	if total.Feeds > 0 && total.Failed == total.Feeds {
		return herrors.New(herrors.ErrCodeNetworkUnavailable, "no feed could be ingested", nil).
			WithSuggestion("Run 'hemin feeds' to see the status of each feed")
	}
	return nil
}

// splitSources separates local files from URLs.
func splitSources(args []string) (urls, files []string) {
	for _, a := range args {
		if fi, err := os.Stat(a); err == nil && !fi.IsDir() {
			files = append(files, a)
			continue
		}
		urls = append(urls, a)
	}
	return urls, files
}

func readOPML(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, herrors.IOError(herrors.ErrCodeFileNotFound, "failed to open OPML file", err).
			WithDetail("path", path)
	}
	defer f.Close()

	urls, err := feed.ParseOPML(f)
	if err != nil {
		return nil, err
	}
	slog.Info("opml_loaded", slog.String("path", path), slog.Int("feeds", len(urls)))
	return urls, nil
}

func sourceLabel(args, opml []string) string {
	all := append(append([]string{}, opml...), args...)
	if len(all) == 1 {
		return all[0]
	}
	return fmt.Sprintf("%d sources", len(all))
}

func mergeReports(reports []*ingest.Report) *ingest.Report {
	total := &ingest.Report{}
	for _, r := range reports {
		total.Feeds += r.Feeds
		total.Shows += r.Shows
		total.Episodes += r.Episodes
		total.Failed += r.Failed
		total.Added += r.Added
		total.Updated += r.Updated
		total.Degraded = total.Degraded || r.Degraded
		total.Failures = append(total.Failures, r.Failures...)
		total.Duration += r.Duration
	}
	return total
}

func printReport(out *output.Writer, r *ingest.Report) {
	for _, f := range r.Failures {
		out.Warningf("%s: %s (%s)", f.URL, f.Err, f.Status)
	}
	out.Successf("Ingested %d shows and %d episodes from %d feeds in %s",
		r.Shows, r.Episodes, r.Feeds-r.Failed, formatDuration(r.Duration))
	if r.Failed > 0 {
		out.Warningf("%d of %d feeds failed", r.Failed, r.Feeds)
	}
	if r.Degraded {
		out.Warning("The index rejected some writes; check the log for index_* entries")
	}
	out.Statusf("", "%d documents added, %d updated", r.Added, r.Updated)
}
