package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/estate-listings/internal/lookup"
	"github.com/evcraddock/estate-listings/internal/property"
	"github.com/evcraddock/estate-listings/internal/search"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printPropertySummary prints a single property summary in text format.
func printPropertySummary(p *property.Property) {
	fmt.Printf("Property %s\n", p.ID)
	fmt.Printf("  Title:    %s\n", p.Title)
	fmt.Printf("  Address:  %s\n", p.FullAddress())
	if p.Price != nil {
		fmt.Printf("  Price:    %s\n", formatPrice(int64(math.Round(*p.Price))))
	}
	if p.Bedrooms != nil {
		fmt.Printf("  Beds:     %d\n", *p.Bedrooms)
	}
	if p.Bathrooms != nil {
		fmt.Printf("  Baths:    %g\n", *p.Bathrooms)
	}
	if p.SquareMeters != nil {
		fmt.Printf("  Area:     %g m²\n", *p.SquareMeters)
	}
	if p.YearBuilt != nil {
		fmt.Printf("  Built:    %d\n", *p.YearBuilt)
	}
	if p.Type != nil {
		fmt.Printf("  Type:     %s\n", p.Type.DisplayName)
	}
	if p.Status != nil {
		fmt.Printf("  Status:   %s\n", p.Status.DisplayName)
	}
	if p.OperationStatus != nil {
		fmt.Printf("  For:      %s\n", p.OperationStatus.DisplayName)
	}
	if p.HasGeocode() {
		fmt.Printf("  Location: %.5f, %.5f\n", *p.Latitude, *p.Longitude)
	}
	fmt.Printf("  Seller:   %s\n", p.SellerID)
}

// printPropertyTable prints a list of properties as a formatted table.
func printPropertyTable(props []*property.Property) error {
	if len(props) == 0 {
		fmt.Println("No properties found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tTITLE\tCITY\tPRICE\tBED\tSTATUS\tFOR"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t-----\t----\t-----\t---\t------\t---"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, p := range props {
		price := "-"
		if p.Price != nil {
			price = formatPrice(int64(math.Round(*p.Price)))
		}
		beds := "-"
		if p.Bedrooms != nil {
			beds = fmt.Sprintf("%d", *p.Bedrooms)
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(p.ID), truncate(p.Title, 40), p.City, price, beds,
			entryName(p.Status), entryName(p.OperationStatus)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Printf("\nTotal: %d properties\n", len(props))
	return nil
}

// printDocumentTable prints search results.
func printDocumentTable(docs []search.Document) error {
	if len(docs) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tTITLE\tNEIGHBORHOOD\tPRICE\tPER M²"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}

	for _, d := range docs {
		price := "-"
		if d.Price != nil {
			price = d.Currency + " " + formatPrice(int64(math.Round(*d.Price)))
		}
		perM2 := "-"
		if d.PricePerM2 != nil {
			perM2 = formatPrice(*d.PricePerM2)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(d.ID), truncate(d.Title, 40), d.Neighborhood, price, perM2); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	return w.Flush()
}

// formatPrice formats a whole amount as a string with commas.
func formatPrice(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	s := fmt.Sprintf("%d", amount)

	// Add commas
	if len(s) <= 3 {
		return sign + s
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	return sign + strings.Join(parts, ",")
}

func entryName(e *lookup.Entry) string {
	if e == nil {
		return "-"
	}
	return e.Name
}

// shortID keeps the first block of a uuid for tables; show accepts the full id.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
