package image

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an image does not exist for the property.
var ErrNotFound = errors.New("image not found")

// Repository provides CRUD operations for property images.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an image repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, property_id, url, is_cover, display_order, created_at`

// Add appends an image to a property. The image is placed after the existing
// ones; it becomes the cover when requested or when the property has none.
func (r *Repository) Add(propertyID, url string, cover bool) (img *Image, err error) {
	if url == "" {
		return nil, fmt.Errorf("image url is required")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
			}
		}
	}()

	var nextOrder, covers int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(display_order) + 1, 0), COALESCE(SUM(is_cover), 0)
		 FROM property_images WHERE property_id = ?`,
		propertyID,
	).Scan(&nextOrder, &covers); err != nil {
		return nil, fmt.Errorf("reading image order: %w", err)
	}

	if covers == 0 {
		cover = true
	} else if cover {
		if _, err := tx.Exec("UPDATE property_images SET is_cover = 0 WHERE property_id = ?", propertyID); err != nil {
			return nil, fmt.Errorf("clearing cover: %w", err)
		}
	}

	id := uuid.NewString()
	if _, err := tx.Exec(
		"INSERT INTO property_images (id, property_id, url, is_cover, display_order) VALUES (?, ?, ?, ?, ?)",
		id, propertyID, url, cover, nextOrder,
	); err != nil {
		return nil, fmt.Errorf("inserting image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing image: %w", err)
	}

	return r.get(propertyID, id)
}

func (r *Repository) get(propertyID, id string) (*Image, error) {
	var img Image
	err := r.db.QueryRow(
		"SELECT "+selectColumns+" FROM property_images WHERE id = ? AND property_id = ?", id, propertyID,
	).Scan(&img.ID, &img.PropertyID, &img.URL, &img.IsCover, &img.DisplayOrder, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return &img, nil
}

// ListByPropertyID returns a property's images in display order.
func (r *Repository) ListByPropertyID(propertyID string) (images []Image, err error) {
	rows, err := r.db.Query(
		"SELECT "+selectColumns+" FROM property_images WHERE property_id = ? ORDER BY display_order, created_at, id",
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.URL, &img.IsCover, &img.DisplayOrder, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating images: %w", err)
	}

	return images, nil
}

// SetCover makes imageID the only cover image of its property.
func (r *Repository) SetCover(propertyID, imageID string) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
			}
		}
	}()

	var exists int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM property_images WHERE id = ? AND property_id = ?", imageID, propertyID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("checking image: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("image %s: %w", imageID, ErrNotFound)
	}

	// Clear first: the partial unique index allows one cover per property.
	if _, err := tx.Exec("UPDATE property_images SET is_cover = 0 WHERE property_id = ?", propertyID); err != nil {
		return fmt.Errorf("clearing cover: %w", err)
	}
	if _, err := tx.Exec("UPDATE property_images SET is_cover = 1 WHERE id = ?", imageID); err != nil {
		return fmt.Errorf("setting cover: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cover: %w", err)
	}
	return nil
}

// Delete removes an image. When the cover is removed, the next image in
// display order becomes the cover. The removed row is returned so callers
// can clean up its blob.
func (r *Repository) Delete(propertyID, imageID string) (img *Image, err error) {
	img, err = r.get(propertyID, imageID)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
			}
		}
	}()

	if _, err := tx.Exec("DELETE FROM property_images WHERE id = ?", imageID); err != nil {
		return nil, fmt.Errorf("deleting image: %w", err)
	}

	if img.IsCover {
		if _, err := tx.Exec(
			`UPDATE property_images SET is_cover = 1 WHERE id = (
				SELECT id FROM property_images WHERE property_id = ?
				ORDER BY display_order, created_at, id LIMIT 1)`,
			propertyID,
		); err != nil {
			return nil, fmt.Errorf("promoting cover: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delete: %w", err)
	}
	return img, nil
}
