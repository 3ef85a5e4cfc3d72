package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		limit   int
		similar bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search listings",
		Long:  "Search listing documents by keyword, or by meaning with --similar when the server has an embedding model configured.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(strings.Join(args, " "), limit, similar)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (1-100)")
	cmd.Flags().BoolVar(&similar, "similar", false, "rank by embedding similarity")

	return cmd
}

func runSearch(query string, limit int, similar bool) error {
	docs, err := newAPIClient().Search(query, limit, similar)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(docs)
	}

	return printDocumentTable(docs)
}
