// Package pharmacyapi is a small client for the /api/pharmacies endpoints.
package pharmacyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/medassist/backend/internal/model/pharmacy"
)

// DefaultBaseURL points at a locally running API server.
const DefaultBaseURL = "http://localhost:8080/api/pharmacies"

// Error is returned for any non-2xx response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Query holds the optional list filters.
type Query struct {
	Name     string
	City     string
	IsActive *bool
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Name != "" {
		v.Set("name", q.Name)
	}
	if q.City != "" {
		v.Set("city", q.City)
	}
	if q.IsActive != nil {
		v.Set("isActive", strconv.FormatBool(*q.IsActive))
	}
	return v
}

// Client talks to the pharmacy REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL; a nil httpClient gets a 15s timeout default.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// List fetches pharmacies matching q.
func (c *Client) List(ctx context.Context, q Query) ([]pharmacy.Pharmacy, error) {
	endpoint := c.baseURL
	if encoded := q.values().Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	var out []pharmacy.Pharmacy
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one pharmacy.
func (c *Client) Get(ctx context.Context, id string) (pharmacy.Pharmacy, error) {
	var out pharmacy.Pharmacy
	err := c.do(ctx, http.MethodGet, c.itemURL(id), nil, &out)
	return out, err
}

// Create posts a new pharmacy and returns the stored record.
func (c *Client) Create(ctx context.Context, p pharmacy.Pharmacy) (pharmacy.Pharmacy, error) {
	var out pharmacy.Pharmacy
	err := c.do(ctx, http.MethodPost, c.baseURL, p, &out)
	return out, err
}

// Update replaces a pharmacy.
func (c *Client) Update(ctx context.Context, id string, p pharmacy.Pharmacy) (pharmacy.Pharmacy, error) {
	var out pharmacy.Pharmacy
	err := c.do(ctx, http.MethodPut, c.itemURL(id), p, &out)
	return out, err
}

// Delete removes a pharmacy. Both 200 and 204 count as success.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.itemURL(id), nil, nil)
}

func (c *Client) itemURL(id string) string {
	return c.baseURL + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("pharmacyapi: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("pharmacyapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pharmacyapi: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("pharmacyapi: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Message: errorMessage(resp, payload)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("pharmacyapi: decode response: %w", err)
	}
	return nil
}

// errorMessage reads msg, message or error from the body, in that order.
func errorMessage(resp *http.Response, payload []byte) string {
	var body struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		for _, m := range []string{body.Msg, body.Message, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
}
