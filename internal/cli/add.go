package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/evcraddock/estate-listings/internal/client"
)

// propertyFlags collects the listing fields accepted by add.
type propertyFlags struct {
	title, description          string
	city, state, country, zip   string
	propType, status, operation string
	price, bathrooms, area      float64
	bedrooms, yearBuilt         int64
	features                    []string
}

func (f *propertyFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "listing title (required)")
	fs.StringVar(&f.description, "description", "", "listing description")
	fs.StringVar(&f.city, "city", "", "city")
	fs.StringVar(&f.state, "state", "", "state or region")
	fs.StringVar(&f.country, "country", "", "country")
	fs.StringVar(&f.zip, "zip", "", "postal code")
	fs.StringVar(&f.propType, "type", "", "property type (house, apartment, condo, ...)")
	fs.StringVar(&f.status, "status", "", "listing status (available, pending, sold, ...)")
	fs.StringVar(&f.operation, "operation", "", "operation (sale, rent, ...)")
	fs.Float64Var(&f.price, "price", 0, "asking price")
	fs.Float64Var(&f.bathrooms, "bathrooms", 0, "number of bathrooms")
	fs.Float64Var(&f.area, "area", 0, "floor area in square meters")
	fs.Int64Var(&f.bedrooms, "bedrooms", 0, "number of bedrooms")
	fs.Int64Var(&f.yearBuilt, "year", 0, "year built")
	fs.StringSliceVar(&f.features, "feature", nil, "feature name (repeatable)")
}

// input builds the request body; numeric fields are only sent when their flag was given.
func (f *propertyFlags) input(fs *pflag.FlagSet, address string) client.PropertyInput {
	in := client.PropertyInput{
		Title:       f.title,
		Description: f.description,
		Address:     address,
		City:        f.city,
		State:       f.state,
		Country:     f.country,
		ZipCode:     f.zip,
		Type:        f.propType,
		Status:      f.status,
		Operation:   f.operation,
		Features:    f.features,
	}
	if fs.Changed("price") {
		in.Price = &f.price
	}
	if fs.Changed("bathrooms") {
		in.Bathrooms = &f.bathrooms
	}
	if fs.Changed("area") {
		in.SquareMeters = &f.area
	}
	if fs.Changed("bedrooms") {
		in.Bedrooms = &f.bedrooms
	}
	if fs.Changed("year") {
		in.YearBuilt = &f.yearBuilt
	}
	return in
}

func newAddCmd() *cobra.Command {
	var flags propertyFlags

	cmd := &cobra.Command{
		Use:   "add <address>",
		Short: "Add a property",
		Long:  "Create a listing owned by the seller of the configured API key. The server geocodes the address when a geocoder is configured.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(flags.title) == "" {
				return fmt.Errorf("--title is required")
			}
			return runAdd(flags.input(cmd.Flags(), strings.Join(args, " ")))
		},
	}

	flags.register(cmd.Flags())

	return cmd
}

func runAdd(in client.PropertyInput) error {
	c := newAPIClient()

	p, err := c.AddProperty(in)
	if err != nil {
		return fmt.Errorf("adding property: %w", err)
	}

	if isJSON() {
		return printJSON(p)
	}

	fmt.Println("Property added successfully!")
	printPropertySummary(p)
	return nil
}
