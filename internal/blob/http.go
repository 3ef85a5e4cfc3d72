package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPStore uploads objects with PUT to a blob endpoint (S3-compatible
// presigned bucket URLs, a CDN origin, or any server accepting PUT).
type HTTPStore struct {
	httpClient *http.Client
	uploadURL  string
	publicURL  string
	token      string
}

// NewHTTPStore creates an HTTP blob store. Objects are PUT to
// uploadURL/name and served from publicURL/name.
func NewHTTPStore(uploadURL, publicURL, token string) *HTTPStore {
	if publicURL == "" {
		publicURL = uploadURL
	}
	return &HTTPStore{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		uploadURL:  strings.TrimRight(uploadURL, "/"),
		publicURL:  strings.TrimRight(publicURL, "/"),
		token:      token,
	}
}

// Put uploads r as name.
func (s *HTTPStore) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := s.do(ctx, http.MethodPut, name, contentType, r); err != nil {
		return "", err
	}
	return s.publicURL + "/" + name, nil
}

// Delete removes name. A 404 from the endpoint is not an error.
func (s *HTTPStore) Delete(ctx context.Context, name string) error {
	return s.do(ctx, http.MethodDelete, name, "", nil)
}

func (s *HTTPStore) do(ctx context.Context, method, name, contentType string, body io.Reader) (err error) {
	req, err := http.NewRequestWithContext(ctx, method, s.uploadURL+"/"+name, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing body: %w", closeErr)
		}
	}()

	if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// NameFromURL maps a public URL issued by this store back to its object name.
func (s *HTTPStore) NameFromURL(url string) (string, bool) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
