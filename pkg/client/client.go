// Package client provides an HTTP client for the demandcast forecast API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Response headers set by POST /api/v1/forecasts.
const (
	HeaderMissing = "X-Demandcast-Missing"
	HeaderCached  = "X-Demandcast-Cached"
	HeaderKey     = "X-Demandcast-Key"
)

// ForecastClient talks to the forecaster service.
// It is safe for concurrent use by multiple goroutines.
type ForecastClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewForecastClient creates a client for baseURL (e.g. "http://localhost:8081")
// with a 30 second request timeout.
func NewForecastClient(baseURL string) *ForecastClient {
	return NewForecastClientWithTimeout(baseURL, 30*time.Second)
}

// NewForecastClientWithTimeout creates a client with a custom timeout.
func NewForecastClientWithTimeout(baseURL string, timeout time.Duration) *ForecastClient {
	return &ForecastClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a non-2xx reply.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("forecaster returned %d: %s", e.StatusCode, e.Message)
}

// ProductsResponse is the body of GET /api/v1/products.
type ProductsResponse struct {
	Products []string `json:"products"`
	Default  string   `json:"default"`
}

// SeriesResponse is one element of GET /api/v1/series.
type SeriesResponse struct {
	ID      string      `json:"id"`
	Dates   []time.Time `json:"dates"`
	Volumes []int64     `json:"volumes"`
}

// ForecastRequest is the body of POST /api/v1/forecasts.
type ForecastRequest struct {
	ProductIDs []string `json:"product_ids"`
	Horizon    int      `json:"horizon"`
}

// ForecastResult is a downloaded forecast.
type ForecastResult struct {
	CSV     []byte
	Key     string
	Missing []string
	Cached  bool
}

// Products lists the selectable product ids.
func (c *ForecastClient) Products(ctx context.Context) (*ProductsResponse, error) {
	var out ProductsResponse
	if err := c.getJSON(ctx, "/api/v1/products", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Series returns the display-aligned history of ids.
func (c *ForecastClient) Series(ctx context.Context, ids []string) ([]SeriesResponse, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("ids cannot be empty")
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))

	var out []SeriesResponse
	if err := c.getJSON(ctx, "/api/v1/series", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Forecast requests horizon forecasts for ids and returns the CSV payload.
func (c *ForecastClient) Forecast(ctx context.Context, ids []string, horizon int) (*ForecastResult, error) {
	body, err := json.Marshal(ForecastRequest{ProductIDs: ids, Horizon: horizon})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	u, err := c.endpoint("/api/v1/forecasts", nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	res := &ForecastResult{
		CSV:    data,
		Key:    resp.Header.Get(HeaderKey),
		Cached: resp.Header.Get(HeaderCached) == "true",
	}
	if m := resp.Header.Get(HeaderMissing); m != "" {
		res.Missing = strings.Split(m, ",")
	}
	return res, nil
}

func (c *ForecastClient) endpoint(path string, q url.Values) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *ForecastClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u, err := c.endpoint(path, q)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
