package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no document exists for an id.
var ErrNotFound = errors.New("search document not found")

// Store persists documents. Put replaces any existing document with the same id.
type Store interface {
	Put(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (*Document, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]Document, error)
}

// DefaultLimit caps search results when the caller passes no limit.
const DefaultLimit = 20

// SQLStore keeps documents as JSON in the search_documents table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a document store backed by db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Put inserts or replaces the document.
func (s *SQLStore) Put(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", doc.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_documents (id, body, content, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			content = excluded.content,
			updated_at = excluded.updated_at
	`, doc.ID, string(body), doc.Text())
	if err != nil {
		return fmt.Errorf("storing document %s: %w", doc.ID, err)
	}
	return nil
}

// Get returns the stored document for id.
func (s *SQLStore) Get(ctx context.Context, id string) (*Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM search_documents WHERE id = ?", id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", id, err)
	}
	return &doc, nil
}

// Delete removes the document for id. Deleting a missing document is not an error.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM search_documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

// Search returns documents whose text contains every term of query,
// most recently indexed first.
func (s *SQLStore) Search(ctx context.Context, query string, limit int) (docs []Document, err error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []Document{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var where []string
	var args []interface{}
	for _, term := range terms {
		where = append(where, "content LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(term)+"%")
	}
	args = append(args, limit)

	q := "SELECT body FROM search_documents WHERE " + strings.Join(where, " AND ") +
		" ORDER BY updated_at DESC, id LIMIT ?"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	docs = []Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
