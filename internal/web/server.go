// Package web provides the JSON HTTP API for browsing and managing listings.
package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/evcraddock/estate-listings/internal/auth"
	"github.com/evcraddock/estate-listings/internal/blob"
	"github.com/evcraddock/estate-listings/internal/cache"
	"github.com/evcraddock/estate-listings/internal/feature"
	"github.com/evcraddock/estate-listings/internal/image"
	"github.com/evcraddock/estate-listings/internal/logging"
	"github.com/evcraddock/estate-listings/internal/property"
	"github.com/evcraddock/estate-listings/internal/search"
)

// Options wires optional collaborators into the server.
type Options struct {
	Currency string
	Blobs    blob.Store // nil disables image uploads
	MediaDir string     // served under /media/ when set
	Geocoder property.Geocoder
	Cache    *cache.Cache // nil disables caching
	Embedder search.Embedder
	Vectors  search.VectorIndex
}

// Server is the listings API HTTP server.
type Server struct {
	properties *property.Service
	images     *image.Service // nil when uploads are disabled
	imageRepo  *image.Repository
	features   *feature.Repository
	indexer    *search.Indexer
	apiKeys    *auth.APIKeyStore
	cache      *cache.Cache
	mux        *http.ServeMux
}

// NewServer creates an API server over db.
func NewServer(db *sql.DB, opts Options) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}

	propRepo := property.NewRepository(db)
	imageRepo := image.NewRepository(db)
	featureRepo := feature.NewRepository(db)

	indexer := search.NewIndexer(propRepo, imageRepo, featureRepo, search.NewSQLStore(db), opts.Currency)
	if opts.Embedder != nil && opts.Vectors != nil {
		indexer.WithVectors(opts.Embedder, opts.Vectors)
	}

	s := &Server{
		properties: property.NewService(propRepo, opts.Geocoder, indexer),
		imageRepo:  imageRepo,
		features:   featureRepo,
		indexer:    indexer,
		apiKeys:    auth.NewAPIKeyStore(db, opts.Cache),
		cache:      opts.Cache,
		mux:        http.NewServeMux(),
	}
	if opts.Blobs != nil {
		s.images = image.NewService(imageRepo, opts.Blobs)
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/api/", s.withAuth(http.HandlerFunc(s.handleAPI)))
	if opts.MediaDir != "" {
		s.mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(opts.MediaDir))))
	}

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           logging.RequestLogger(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting api server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down api server")
		return srv.Shutdown(shutdownCtx)
	}
}

// withAuth requires an API key for writes and for seller-private reads.
// Public reads pass through untouched.
func (s *Server) withAuth(next http.Handler) http.Handler {
	protected := auth.RequireAPIKey(s.apiKeys, next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicRead(r) {
			next.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})
}

func isPublicRead(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	p := r.URL.Path
	return p != "/api/dashboard" && p != "/api/keys" && !strings.HasPrefix(p, "/api/keys/")
}

// handleAPI routes /api/ requests.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(strings.TrimPrefix(r.URL.Path, "/api/"))
	if len(parts) == 0 {
		apiError(w, "not found", http.StatusNotFound)
		return
	}

	switch parts[0] {
	case "properties":
		s.handleAPIProperties(w, r, parts[1:])
	case "lookups":
		s.only(w, r, http.MethodGet, s.apiLookups)
	case "features":
		s.only(w, r, http.MethodGet, s.apiListAllFeatures)
	case "search":
		s.only(w, r, http.MethodGet, s.apiSearch)
	case "dashboard":
		s.only(w, r, http.MethodGet, s.apiDashboard)
	case "keys":
		s.handleAPIKeys(w, r, parts[1:])
	default:
		apiError(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) only(w http.ResponseWriter, r *http.Request, method string, h http.HandlerFunc) {
	if r.Method != method {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h(w, r)
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// invalidate drops cached reads that a write by sellerID may have changed.
func (s *Server) invalidate(ctx context.Context, sellerID string) {
	if err := s.cache.InvalidatePrefix(ctx, "search:"); err != nil {
		slog.WarnContext(ctx, "invalidating search cache", "error", err)
	}
	if err := s.cache.Delete(ctx, dashboardKey(sellerID)); err != nil {
		slog.WarnContext(ctx, "invalidating dashboard cache", "seller_id", sellerID, "error", err)
	}
}

// resync rebuilds a property's search document after an image or feature change.
func (s *Server) resync(ctx context.Context, propertyID string) {
	if err := s.indexer.Sync(ctx, propertyID); err != nil {
		slog.WarnContext(ctx, "syncing search document", "property_id", propertyID, "error", err)
	}
}
