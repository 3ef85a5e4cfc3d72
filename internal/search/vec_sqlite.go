//go:build sqlite_vec && cgo

package search

import (
	"context"
	"database/sql"
	"fmt"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers vec_* functions with every mattn/go-sqlite3 connection.
	vec.Auto()
}

// SQLiteVectorIndex keeps embeddings in a plain table and ranks them with
// sqlite-vec's vec_distance_cosine.
type SQLiteVectorIndex struct {
	db *sql.DB
}

// NewVectorIndex creates the search_vectors table if needed.
func NewVectorIndex(db *sql.DB) (*SQLiteVectorIndex, error) {
	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		return nil, fmt.Errorf("probing sqlite-vec: %w", err)
	}

	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS search_vectors (
		id        TEXT PRIMARY KEY REFERENCES search_documents(id) ON DELETE CASCADE,
		embedding BLOB NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("creating search_vectors: %w", err)
	}
	return &SQLiteVectorIndex{db: db}, nil
}

// Upsert stores the embedding for id.
func (v *SQLiteVectorIndex) Upsert(ctx context.Context, id string, embedding []float32) error {
	blob, err := vec.SerializeFloat32(embedding)
	if err != nil {
		return fmt.Errorf("serializing embedding: %w", err)
	}
	_, err = v.db.ExecContext(ctx, `
		INSERT INTO search_vectors (id, embedding) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding
	`, id, blob)
	if err != nil {
		return fmt.Errorf("storing embedding %s: %w", id, err)
	}
	return nil
}

// Delete removes the embedding for id.
func (v *SQLiteVectorIndex) Delete(ctx context.Context, id string) error {
	if _, err := v.db.ExecContext(ctx, "DELETE FROM search_vectors WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting embedding %s: %w", id, err)
	}
	return nil
}

// Nearest returns up to k document ids ordered by cosine distance to embedding.
func (v *SQLiteVectorIndex) Nearest(ctx context.Context, embedding []float32, k int) (ids []string, err error) {
	blob, err := vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serializing embedding: %w", err)
	}

	rows, err := v.db.QueryContext(ctx, `
		SELECT id FROM search_vectors
		ORDER BY vec_distance_cosine(embedding, ?) ASC
		LIMIT ?
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
