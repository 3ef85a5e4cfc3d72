package property

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/evcraddock/estate-listings/internal/geocode"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (*geocode.Point, error)
}

// Indexer keeps the search read model in step with the relational rows.
type Indexer interface {
	Sync(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
}

// Service provides property business logic.
type Service struct {
	repo     *Repository
	geocoder Geocoder
	indexer  Indexer
}

// NewService creates a property service. geocoder and indexer may be nil.
func NewService(repo *Repository, geocoder Geocoder, indexer Indexer) *Service {
	return &Service{repo: repo, geocoder: geocoder, indexer: indexer}
}

// Repository returns the underlying repository.
func (s *Service) Repository() *Repository {
	return s.repo
}

// Create validates and stores a new listing owned by sellerID.
// Geocoding and indexing are best-effort: failures are logged, not returned.
func (s *Service) Create(ctx context.Context, p *Property, sellerID string) (*Property, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	p.ID = uuid.NewString()
	p.SellerID = sellerID
	if p.SellerID == "" {
		p.SellerID = UnassignedSeller
	}

	if !p.HasGeocode() {
		s.geocode(ctx, p)
	}

	saved, err := s.repo.Insert(p)
	if err != nil {
		return nil, fmt.Errorf("saving property: %w", err)
	}

	s.sync(ctx, saved.ID)
	return saved, nil
}

// Update replaces the editable fields of a listing owned by sellerID.
// The address change clears stale coordinates before re-geocoding.
func (s *Service) Update(ctx context.Context, p *Property, sellerID string) (*Property, error) {
	existing, err := s.Owned(p.ID, sellerID)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if p.FullAddress() != existing.FullAddress() && !p.HasGeocode() {
		s.geocode(ctx, p)
	} else if !p.HasGeocode() {
		p.Latitude, p.Longitude = existing.Latitude, existing.Longitude
	}

	saved, err := s.repo.Update(p)
	if err != nil {
		return nil, err
	}

	s.sync(ctx, saved.ID)
	return saved, nil
}

// Delete removes a listing owned by sellerID and drops its search document.
func (s *Service) Delete(ctx context.Context, id, sellerID string) error {
	if _, err := s.Owned(id, sellerID); err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, id); err != nil {
			slog.WarnContext(ctx, "removing search document", "property_id", id, "error", err)
		}
	}
	return nil
}

// ErrForbidden is returned when a seller acts on another seller's listing.
var ErrForbidden = errors.New("property belongs to another seller")

// Owned loads a property and checks that sellerID owns it.
func (s *Service) Owned(id, sellerID string) (*Property, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, fmt.Errorf("property %s: %w", id, ErrForbidden)
	}
	return p, nil
}

func (s *Service) geocode(ctx context.Context, p *Property) {
	if s.geocoder == nil {
		return
	}
	pt, err := s.geocoder.Lookup(ctx, p.FullAddress())
	if err != nil {
		slog.WarnContext(ctx, "geocoding property", "address", p.FullAddress(), "error", err)
		p.Latitude, p.Longitude = nil, nil
		return
	}
	p.Latitude, p.Longitude = &pt.Latitude, &pt.Longitude
}

func (s *Service) sync(ctx context.Context, id string) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Sync(ctx, id); err != nil {
		slog.WarnContext(ctx, "syncing search document", "property_id", id, "error", err)
	}
}
