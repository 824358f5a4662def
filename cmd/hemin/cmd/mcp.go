package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mpgirro/hemin/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout.

stdout carries JSON-RPC only; diagnostics go to the log file.
Tools: search, lookup, episodes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStores()
			if err != nil {
				return err
			}
			defer st.Close()

			srv, err := mcp.NewServer(st.engine,
				mcp.WithCatalog(st.catalog),
				mcp.WithLogger(slog.Default()))
			if err != nil {
				return err
			}
			return srv.Serve(ctx)
		},
	}
}
