// Package feature provides listing features (pool, garage, ...) and their
// many-to-many assignment to properties.
package feature

import (
	"fmt"
	"strings"
)

// Feature is a named amenity.
type Feature struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// maxNameLen bounds feature names.
const maxNameLen = 64

// Normalize trims a feature name and validates its length.
func Normalize(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", fmt.Errorf("feature name is required")
	}
	if len(name) > maxNameLen {
		return "", fmt.Errorf("feature name longer than %d characters: %q", maxNameLen, name)
	}
	return name, nil
}

// SplitLegacy splits a comma-separated amenities string into feature names,
// dropping blanks and duplicates while keeping first-seen order.
func SplitLegacy(amenities string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, part := range strings.Split(amenities, ",") {
		name, err := Normalize(part)
		if err != nil {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}
