package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/evcraddock/estate-listings/internal/blob"
)

// MaxUploadBytes caps the size of a single uploaded image.
const MaxUploadBytes = 10 << 20

// allowedTypes maps accepted content types to file extensions.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Extension returns the file extension for an accepted content type.
func Extension(contentType string) (string, bool) {
	ext, ok := allowedTypes[contentType]
	return ext, ok
}

// Service uploads image blobs and records them against properties.
type Service struct {
	repo  *Repository
	blobs blob.Store
}

// NewService creates an image service.
func NewService(repo *Repository, blobs blob.Store) *Service {
	return &Service{repo: repo, blobs: blobs}
}

// Repository returns the underlying repository.
func (s *Service) Repository() *Repository {
	return s.repo
}

// Upload stores the image bytes and attaches the resulting URL to the property.
// If recording the row fails, the uploaded blob is removed again.
func (s *Service) Upload(ctx context.Context, propertyID, contentType string, r io.Reader, cover bool) (*Image, error) {
	ext, ok := Extension(contentType)
	if !ok {
		return nil, fmt.Errorf("unsupported image type %q", contentType)
	}

	name := blob.NewName("properties/"+propertyID, ext)
	url, err := s.blobs.Put(ctx, name, contentType, io.LimitReader(r, MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("uploading image: %w", err)
	}

	img, err := s.repo.Add(propertyID, url, cover)
	if err != nil {
		if delErr := s.blobs.Delete(ctx, name); delErr != nil {
			slog.WarnContext(ctx, "removing orphaned upload", "name", name, "error", delErr)
		}
		return nil, err
	}

	return img, nil
}

// Remove deletes the image row and, for blobs this service can address, the blob.
func (s *Service) Remove(ctx context.Context, propertyID, imageID string) error {
	img, err := s.repo.Delete(propertyID, imageID)
	if err != nil {
		return err
	}

	if namer, ok := s.blobs.(interface{ NameFromURL(string) (string, bool) }); ok {
		if name, ok := namer.NameFromURL(img.URL); ok {
			if err := s.blobs.Delete(ctx, name); err != nil {
				slog.WarnContext(ctx, "deleting image blob", "url", img.URL, "error", err)
			}
		}
	}
	return nil
}
