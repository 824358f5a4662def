package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mpgirro/hemin/internal/ingest"
	"github.com/mpgirro/hemin/internal/output"
	"github.com/mpgirro/hemin/internal/ui"
	"github.com/mpgirro/hemin/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Ingest feed files dropped into a spool directory",
		Long: `Watch a spool directory and ingest every file written to it.

*.xml, *.rss and *.atom files are ingested as feed documents, *.opml files
as subscription lists. Files already present are ingested on start.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStoresForWrite(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if dir == "" {
				dir = st.cfg.Ingest.SpoolDir
			}
			out := output.New(cmd.OutOrStdout())
			renderer := ui.NewPlainRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithNoColor(true)))

			p, err := st.newPipeline(renderer)
			if err != nil {
				return err
			}

			opts := watcher.DefaultOptions()
			opts.Debounce = st.cfg.IngestDebounce()
			w := ingest.NewWatcher(p, opts)
			w.OnReport(func(path string, r *ingest.Report, err error) {
				if err != nil {
					out.Errorf("%s: %v", path, err)
					return
				}
				slog.Debug("spool_file_done", slog.String("path", path), slog.Int("failed", r.Failed))
			})

			out.Statusf("👀", "Watching %s (Ctrl+C to stop)", dir)
			return w.Run(ctx, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Spool directory (default: ingest.spool_dir from config)")

	return cmd
}
