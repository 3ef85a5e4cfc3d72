// Package geocode resolves street addresses to coordinates over HTTP.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent = "estate-listings/1.0"
)

// ErrNotFound is returned when the geocoder has no match for an address.
var ErrNotFound = errors.New("address not found")

// Point is a latitude/longitude pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Client looks up coordinates for addresses.
type Client struct {
	httpClient *http.Client
	userAgent  string

	// Overridable for testing.
	baseURL string

	mu   sync.Mutex
	memo map[string]Point
}

// NewClient creates a geocoding client. Empty arguments use the defaults.
func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  userAgent,
		baseURL:    baseURL,
		memo:       make(map[string]Point),
	}
}

// searchResult is one match in the search response.
// Coordinates arrive as decimal strings.
type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup returns the coordinates of the best match for address.
// Successful lookups are remembered for the lifetime of the client.
func (c *Client) Lookup(ctx context.Context, address string) (*Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}

	key := strings.ToLower(address)
	c.mu.Lock()
	if p, ok := c.memo[key]; ok {
		c.mu.Unlock()
		return &p, nil
	}
	c.mu.Unlock()

	p, err := c.search(ctx, address)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.memo[key] = *p
	c.mu.Unlock()

	return p, nil
}

func (c *Client) search(ctx context.Context, address string) (p *Point, err error) {
	params := url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%s: %w", address, ErrNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude %q: %w", results[0].Lon, err)
	}

	return &Point{Latitude: lat, Longitude: lng}, nil
}
