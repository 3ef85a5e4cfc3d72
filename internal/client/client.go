// Package client provides an HTTP client for the listings REST API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/evcraddock/estate-listings/internal/feature"
	"github.com/evcraddock/estate-listings/internal/image"
	"github.com/evcraddock/estate-listings/internal/property"
	"github.com/evcraddock/estate-listings/internal/search"
)

// Client is an HTTP client for the listings API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ShowResponse is the response from GET /api/properties/{id}.
type ShowResponse struct {
	Property *property.Property `json:"property"`
	Images   []image.Image      `json:"images"`
	Features []feature.Feature  `json:"features"`
}

// ListOptions controls filtering for ListProperties. Lookup filters accept
// names ("sale", "house") or numeric ids.
type ListOptions struct {
	Seller      string
	City        string
	Type        string
	Status      string
	Operation   string
	MinPrice    *float64
	MaxPrice    *float64
	MinBedrooms int
	Limit       int
	Offset      int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	for k, v := range map[string]string{
		"seller":    o.Seller,
		"city":      o.City,
		"type":      o.Type,
		"status":    o.Status,
		"operation": o.Operation,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if o.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*o.MinPrice, 'f', -1, 64))
	}
	if o.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*o.MaxPrice, 'f', -1, 64))
	}
	if o.MinBedrooms > 0 {
		q.Set("min_bedrooms", strconv.Itoa(o.MinBedrooms))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

// PropertyInput is the body for creating or updating a property.
type PropertyInput struct {
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Address      string   `json:"address,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	Country      string   `json:"country,omitempty"`
	ZipCode      string   `json:"zip_code,omitempty"`
	Type         string   `json:"type,omitempty"`
	Status       string   `json:"status,omitempty"`
	Operation    string   `json:"operation,omitempty"`
	Bedrooms     *int64   `json:"bedrooms,omitempty"`
	Bathrooms    *float64 `json:"bathrooms,omitempty"`
	SquareMeters *float64 `json:"square_meters,omitempty"`
	YearBuilt    *int64   `json:"year_built,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// APIKey is an API key as returned by the server, without the raw key.
type APIKey struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	SellerID   string  `json:"seller_id"`
	KeyPrefix  string  `json:"key_prefix"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

// CreatedKey holds a newly issued key. Key is only ever returned once.
type CreatedKey struct {
	Key    string `json:"key"`
	APIKey APIKey `json:"api_key"`
}

// Health checks that the server is up.
func (c *Client) Health() error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("server status %q", resp.Status)
	}
	return nil
}

// ListProperties returns properties, optionally filtered.
func (c *Client) ListProperties(opts ListOptions) ([]*property.Property, error) {
	path := "/api/properties"
	if q := opts.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var props []*property.Property
	if err := c.get(path, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// GetProperty returns a property with its images and features.
func (c *Client) GetProperty(id string) (*ShowResponse, error) {
	var resp ShowResponse
	if err := c.get("/api/properties/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddProperty creates a property owned by the key's seller.
func (c *Client) AddProperty(in PropertyInput) (*property.Property, error) {
	var p property.Property
	if err := c.send("POST", "/api/properties", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProperty applies the non-empty fields of in to a property.
func (c *Client) UpdateProperty(id string, in PropertyInput) (*property.Property, error) {
	var p property.Property
	if err := c.send("PUT", "/api/properties/"+url.PathEscape(id), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProperty removes a property.
func (c *Client) DeleteProperty(id string) error {
	return c.send("DELETE", "/api/properties/"+url.PathEscape(id), nil, nil)
}

// AssignFeatures attaches features to a property by name.
func (c *Client) AssignFeatures(id string, names ...string) ([]feature.Feature, error) {
	var features []feature.Feature
	body := map[string][]string{"names": names}
	if err := c.send("POST", "/api/properties/"+url.PathEscape(id)+"/features", body, &features); err != nil {
		return nil, err
	}
	return features, nil
}

// Document returns a property's search document.
func (c *Client) Document(id string) (*search.Document, error) {
	var doc search.Document
	if err := c.get("/api/properties/"+url.PathEscape(id)+"/document", &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Search runs a keyword search, or a similarity search when similar is set.
func (c *Client) Search(query string, limit int, similar bool) ([]search.Document, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if similar {
		q.Set("mode", "similar")
	}

	var docs []search.Document
	if err := c.get("/api/search?"+q.Encode(), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Dashboard returns the key's seller statistics.
func (c *Client) Dashboard() (*property.Dashboard, error) {
	var d property.Dashboard
	if err := c.get("/api/dashboard", &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListKeys returns the caller's API keys.
func (c *Client) ListKeys() ([]APIKey, error) {
	var keys []APIKey
	if err := c.get("/api/keys", &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// CreateKey issues another key for the caller's seller.
func (c *Client) CreateKey(name string) (*CreatedKey, error) {
	var k CreatedKey
	if err := c.send("POST", "/api/keys", map[string]string{"name": name}, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// DeleteKey revokes one of the caller's keys.
func (c *Client) DeleteKey(id int64) error {
	return c.send("DELETE", "/api/keys/"+strconv.FormatInt(id, 10), nil, nil)
}

// get performs a GET request and decodes the response.
func (c *Client) get(path string, result interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// send performs a request with an optional JSON body and decodes the response.
func (c *Client) send(method, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, result)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &Error{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &Error{StatusCode: resp.StatusCode, Message: "server error: " + http.StatusText(resp.StatusCode)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// Error is an error response from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}
