package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpgirro/hemin/internal/document"
	herrors "github.com/mpgirro/hemin/internal/errors"
)

func newLookupCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "lookup <exo>",
		Short: "Show a single indexed document by its exo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}
			defer st.Close()

			doc, err := st.engine.FindByExternalID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if doc == nil {
				return herrors.New(herrors.ErrCodeInvalidInput, fmt.Sprintf("no document with exo %s", args[0]), nil).
					WithSuggestion("Use 'hemin search' to find exos")
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), document.FormatCLI(doc))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the document as JSON")

	return cmd
}
