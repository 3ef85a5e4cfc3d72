// Package search maintains the denormalized read model of listings: it builds
// flat documents from relational rows and keeps them in a document store.
package search

import (
	"math"
	"strings"

	"github.com/evcraddock/estate-listings/internal/feature"
	"github.com/evcraddock/estate-listings/internal/image"
	"github.com/evcraddock/estate-listings/internal/property"
)

// SummaryLength is the number of characters kept from the description.
const SummaryLength = 240

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "USD"

// Document is the flattened, read-optimized form of a property.
type Document struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Summary      string   `json:"summary"`
	Features     []string `json:"features"`
	Images       []string `json:"images"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	PricePerM2   *int64   `json:"price_per_m2,omitempty"`
	Currency     string   `json:"currency"`
}

// Build assembles the document for a property from its images and features.
// Collections keep their input order. Build never fails: fields that cannot
// be derived are left out.
func Build(p property.Property, images []image.Image, features []feature.Feature, currency string) Document {
	if currency == "" {
		currency = DefaultCurrency
	}

	doc := Document{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Summary:      summarize(p.Description),
		Features:     make([]string, 0, len(features)),
		Images:       make([]string, 0, len(images)),
		Neighborhood: p.City,
		Currency:     currency,
	}

	for _, f := range features {
		doc.Features = append(doc.Features, f.Name)
	}
	for _, img := range images {
		doc.Images = append(doc.Images, img.URL)
	}

	if p.Price != nil {
		price := *p.Price
		doc.Price = &price
		if p.SquareMeters != nil && *p.SquareMeters != 0 {
			perM2 := int64(math.Round(price / *p.SquareMeters))
			doc.PricePerM2 = &perM2
		}
	}

	return doc
}

// summarize cuts s to SummaryLength characters without regard for word boundaries.
func summarize(s string) string {
	r := []rune(s)
	if len(r) <= SummaryLength {
		return s
	}
	return string(r[:SummaryLength])
}

// Text returns the searchable text of the document, lower-cased.
func (d Document) Text() string {
	parts := []string{d.Title, d.Description, d.Neighborhood}
	parts = append(parts, d.Features...)
	return strings.ToLower(strings.Join(parts, " "))
}
