package web

import (
	"errors"
	"mime"
	"net/http"

	"github.com/evcraddock/estate-listings/internal/image"
)

// handleAPIImages routes /api/properties/{id}/images requests.
func (s *Server) handleAPIImages(w http.ResponseWriter, r *http.Request, propertyID string, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		s.apiListImages(w, r, propertyID)
	case len(parts) == 0 && r.Method == http.MethodPost:
		s.apiUploadImage(w, r, propertyID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.apiDeleteImage(w, r, propertyID, parts[0])
	case len(parts) == 2 && parts[1] == "cover" && r.Method == http.MethodPost:
		s.apiSetCover(w, r, propertyID, parts[0])
	case len(parts) <= 2:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		apiError(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) apiListImages(w http.ResponseWriter, r *http.Request, propertyID string) {
	if _, err := s.properties.Repository().GetByID(propertyID); err != nil {
		apiServiceError(w, r, "loading property", err)
		return
	}
	images, err := s.imageRepo.ListByPropertyID(propertyID)
	if err != nil {
		apiServiceError(w, r, "listing images", err)
		return
	}
	if images == nil {
		images = make([]image.Image, 0)
	}
	apiJSON(w, images, http.StatusOK)
}

// apiUploadImage accepts a multipart form with a "file" part and optional "cover=true".
func (s *Server) apiUploadImage(w http.ResponseWriter, r *http.Request, propertyID string) {
	if s.images == nil {
		apiError(w, "image uploads not available (no blob store configured)", http.StatusServiceUnavailable)
		return
	}

	seller := sellerID(r)
	if _, err := s.properties.Owned(propertyID, seller); err != nil {
		apiServiceError(w, r, "loading property", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, image.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apiError(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		apiError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		apiError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > image.MaxUploadBytes {
		apiError(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	}

	contentType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if _, ok := image.Extension(contentType); !ok {
		apiError(w, "unsupported image type: "+contentType, http.StatusUnsupportedMediaType)
		return
	}

	img, err := s.images.Upload(r.Context(), propertyID, contentType, file, r.FormValue("cover") == "true")
	if err != nil {
		apiServiceError(w, r, "uploading image", err)
		return
	}

	s.resync(r.Context(), propertyID)
	s.invalidate(r.Context(), seller)
	apiJSON(w, img, http.StatusCreated)
}

func (s *Server) apiSetCover(w http.ResponseWriter, r *http.Request, propertyID, imageID string) {
	seller := sellerID(r)
	if _, err := s.properties.Owned(propertyID, seller); err != nil {
		apiServiceError(w, r, "loading property", err)
		return
	}
	if err := s.imageRepo.SetCover(propertyID, imageID); err != nil {
		apiServiceError(w, r, "setting cover", err)
		return
	}
	s.resync(r.Context(), propertyID)
	apiJSON(w, map[string]interface{}{"id": imageID, "is_cover": true}, http.StatusOK)
}

func (s *Server) apiDeleteImage(w http.ResponseWriter, r *http.Request, propertyID, imageID string) {
	seller := sellerID(r)
	if _, err := s.properties.Owned(propertyID, seller); err != nil {
		apiServiceError(w, r, "loading property", err)
		return
	}

	var err error
	if s.images != nil {
		err = s.images.Remove(r.Context(), propertyID, imageID)
	} else {
		_, err = s.imageRepo.Delete(propertyID, imageID)
	}
	if err != nil {
		apiServiceError(w, r, "deleting image", err)
		return
	}

	s.resync(r.Context(), propertyID)
	s.invalidate(r.Context(), seller)
	apiJSON(w, map[string]interface{}{"id": imageID, "removed": true}, http.StatusOK)
}
