package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpgirro/hemin/internal/output"
)

func newFeedsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "List registered feeds and their last ingestion status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}
			defer st.Close()

			feeds, err := st.catalog.Feeds(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(feeds)
			}
			if len(feeds) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No feeds registered.")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), output.FeedTable(feeds))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
