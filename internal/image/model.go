// Package image provides listing photos: metadata rows and blob uploads.
package image

import "time"

// Image is a photo attached to a property.
type Image struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	URL          string    `json:"url"`
	IsCover      bool      `json:"is_cover"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}
