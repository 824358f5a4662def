package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mpgirro/hemin/internal/api"
	"github.com/mpgirro/hemin/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search and catalog lookups over HTTP",
		Long: `Start the JSON HTTP API.

Endpoints:
  GET /healthz
  GET /api/search?q=<query>&p=<page>&s=<size>
  GET /api/documents/{exo}
  GET /api/shows/{exo}
  GET /api/shows/{exo}/episodes
  GET /api/episodes/{exo}
  GET /api/stats`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStores()
			if err != nil {
				return err
			}
			defer st.Close()

			if addr == "" {
				addr = st.cfg.Server.Addr
			}
			srv := api.NewServer(st.engine, st.catalog,
				api.WithLogger(slog.Default()),
				api.WithMetrics(telemetry.NewQueryMetrics(telemetry.DefaultConfig())))
			cmd.PrintErrf("Listening on http://%s\n", addr)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")

	return cmd
}
