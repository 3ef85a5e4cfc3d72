package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/evcraddock/estate-listings/internal/feature"
	"github.com/evcraddock/estate-listings/internal/image"
	"github.com/evcraddock/estate-listings/internal/property"
)

// Indexer rebuilds documents from the relational rows and hands them to a Store.
type Indexer struct {
	properties *property.Repository
	images     *image.Repository
	features   *feature.Repository
	store      Store
	currency   string

	embedder Embedder
	vectors  VectorIndex
}

// NewIndexer creates an indexer that stamps documents with currency.
func NewIndexer(properties *property.Repository, images *image.Repository, features *feature.Repository, store Store, currency string) *Indexer {
	return &Indexer{
		properties: properties,
		images:     images,
		features:   features,
		store:      store,
		currency:   currency,
	}
}

// WithVectors enables similarity search. Embedding failures during Sync are
// logged and do not fail the sync.
func (ix *Indexer) WithVectors(embedder Embedder, vectors VectorIndex) *Indexer {
	ix.embedder = embedder
	ix.vectors = vectors
	return ix
}

// Store returns the document store.
func (ix *Indexer) Store() Store {
	return ix.store
}

// Document builds the current document for a property without storing it.
func (ix *Indexer) Document(ctx context.Context, id string) (Document, error) {
	p, err := ix.properties.GetByID(id)
	if err != nil {
		return Document{}, err
	}
	images, err := ix.images.ListByPropertyID(id)
	if err != nil {
		return Document{}, fmt.Errorf("loading images: %w", err)
	}
	features, err := ix.features.ListByPropertyID(id)
	if err != nil {
		return Document{}, fmt.Errorf("loading features: %w", err)
	}
	return Build(*p, images, features, ix.currency), nil
}

// Sync rebuilds and stores the document for one property.
func (ix *Indexer) Sync(ctx context.Context, id string) error {
	doc, err := ix.Document(ctx, id)
	if err != nil {
		return err
	}
	if err := ix.store.Put(ctx, doc); err != nil {
		return err
	}

	if ix.embedder != nil && ix.vectors != nil {
		ix.embed(ctx, doc)
	}
	return nil
}

func (ix *Indexer) embed(ctx context.Context, doc Document) {
	vec, err := ix.embedder.Embed(ctx, doc.Text())
	if err != nil {
		slog.WarnContext(ctx, "embedding document", "property_id", doc.ID, "error", err)
		return
	}
	if err := ix.vectors.Upsert(ctx, doc.ID, vec); err != nil {
		slog.WarnContext(ctx, "storing embedding", "property_id", doc.ID, "error", err)
	}
}

// Remove drops the document for a deleted property.
func (ix *Indexer) Remove(ctx context.Context, id string) error {
	if ix.vectors != nil {
		if err := ix.vectors.Delete(ctx, id); err != nil {
			slog.WarnContext(ctx, "deleting embedding", "property_id", id, "error", err)
		}
	}
	return ix.store.Delete(ctx, id)
}

// SyncResult reports the outcome of a full reindex.
type SyncResult struct {
	Total  int
	Synced int
	Failed int
}

// SyncAll rebuilds every document. A failing property is logged and skipped.
// With dryRun set, documents are built but not stored.
func (ix *Indexer) SyncAll(ctx context.Context, dryRun bool) (SyncResult, error) {
	var res SyncResult

	ids, err := ix.properties.IDs()
	if err != nil {
		return res, fmt.Errorf("listing properties: %w", err)
	}
	res.Total = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if dryRun {
			_, err = ix.Document(ctx, id)
		} else {
			err = ix.Sync(ctx, id)
		}
		if err != nil {
			res.Failed++
			slog.ErrorContext(ctx, "indexing property", "property_id", id, "error", err)
			continue
		}
		res.Synced++
	}

	slog.InfoContext(ctx, "reindex complete",
		"total", res.Total, "synced", res.Synced, "failed", res.Failed, "dry_run", dryRun)
	return res, nil
}

// Similar returns the stored documents nearest to query by embedding.
func (ix *Indexer) Similar(ctx context.Context, query string, limit int) ([]Document, error) {
	if ix.embedder == nil || ix.vectors == nil {
		return nil, ErrVectorsUnavailable
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	ids, err := ix.vectors.Nearest(ctx, vec, limit)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := ix.store.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}
