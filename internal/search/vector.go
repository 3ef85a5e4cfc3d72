package search

import (
	"context"
	"errors"
)

// ErrVectorsUnavailable is returned when the binary was built without sqlite-vec.
var ErrVectorsUnavailable = errors.New("vector search unavailable: build with -tags sqlite_vec")

// VectorIndex stores one embedding per document and answers nearest-neighbour queries.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vec []float32) error
	Delete(ctx context.Context, id string) error
	Nearest(ctx context.Context, vec []float32, k int) ([]string, error)
}
