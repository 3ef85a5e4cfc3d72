//go:build !(sqlite_vec && cgo)

package search

import (
	"context"
	"database/sql"
)

// SQLiteVectorIndex is a placeholder when sqlite-vec is not compiled in.
type SQLiteVectorIndex struct{}

// NewVectorIndex always fails without the sqlite_vec build tag.
func NewVectorIndex(db *sql.DB) (*SQLiteVectorIndex, error) {
	return nil, ErrVectorsUnavailable
}

func (v *SQLiteVectorIndex) Upsert(ctx context.Context, id string, embedding []float32) error {
	return ErrVectorsUnavailable
}

func (v *SQLiteVectorIndex) Delete(ctx context.Context, id string) error {
	return ErrVectorsUnavailable
}

func (v *SQLiteVectorIndex) Nearest(ctx context.Context, embedding []float32, k int) ([]string, error) {
	return nil, ErrVectorsUnavailable
}
