package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-listings/internal/client"
)

func newListCmd() *cobra.Command {
	var (
		opts               client.ListOptions
		minPrice, maxPrice float64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties",
		Long:  "List published properties, optionally filtered by city, type, status, operation, price or bedrooms.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("min-price") {
				opts.MinPrice = &minPrice
			}
			if cmd.Flags().Changed("max-price") {
				opts.MaxPrice = &maxPrice
			}
			return runList(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Seller, "seller", "", "only this seller's listings")
	cmd.Flags().StringVar(&opts.City, "city", "", "city")
	cmd.Flags().StringVar(&opts.Type, "type", "", "property type")
	cmd.Flags().StringVar(&opts.Status, "status", "", "listing status")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation (sale, rent, ...)")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "minimum price")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "maximum price")
	cmd.Flags().IntVar(&opts.MinBedrooms, "bedrooms", 0, "minimum bedrooms")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results")

	return cmd
}

func runList(opts client.ListOptions) error {
	props, err := newAPIClient().ListProperties(opts)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(props)
	}

	return printPropertyTable(props)
}
