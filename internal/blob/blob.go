// Package blob stores uploaded binary objects and returns their public URLs.
package blob

import (
	"context"
	"io"
	"path"

	"github.com/google/uuid"
)

// Store saves objects and returns a publicly reachable URL.
type Store interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
}

// NewName returns a collision-free object name under prefix, keeping ext.
func NewName(prefix, ext string) string {
	return path.Join(prefix, uuid.NewString()+ext)
}
