// Package dataapi fetches flight records from the open-data REST API.
package dataapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sfo_flights/internal/config"
	"sfo_flights/internal/models"
)

// TokenHeader carries the application token on every request
const TokenHeader = "X-Access-Token"

const defaultTimeout = 30 * time.Second

var (
	// ErrTransport is returned when the request could not be completed (DNS, connect, timeout)
	ErrTransport = errors.New("data API request failed")
	// ErrStatus is returned for any non-2xx response
	ErrStatus = errors.New("data API returned an error status")
	// ErrDecode is returned when the body is not a JSON array of records
	ErrDecode = errors.New("data API response could not be decoded")
)

// Query is the filter and row cap sent with the request
type Query struct {
	Where string
	Limit int
}

// Values encodes the query the way the API expects it
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("$limit", strconv.Itoa(q.Limit))
	if q.Where != "" {
		v.Set("$where", q.Where)
	}
	return v
}

// Client fetches flight records from one API endpoint
type Client struct {
	baseURL string
	client  *http.Client
}

// tokenRoundTripper injects the application token into every outgoing request
type tokenRoundTripper struct {
	base  http.RoundTripper
	token string
}

func (t *tokenRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(TokenHeader, t.token)
	return t.base.RoundTrip(req)
}

// New creates a client for the configured endpoint
func New(cfg config.APIConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", cfg.URL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: cfg.URL,
		client: &http.Client{
			Transport: &tokenRoundTripper{base: http.DefaultTransport, token: cfg.Key},
			Timeout:   timeout,
		},
	}, nil
}

// Fetch performs one GET and decodes the body into a table
func (c *Client) Fetch(ctx context.Context, q Query) (*models.FlightRecordTable, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", c.baseURL, err)
	}
	// Parameters already present in the configured URL are kept
	params := u.Query()
	for k, v := range q.Values() {
		params[k] = v
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Info("Fetching SFO flights", "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Keep the start of the body for the error message
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Join(ErrStatus, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, snippet))
	}

	table, err := models.DecodeJSON(resp.Body)
	if err != nil {
		var netErr net.Error
		if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, errors.Join(ErrTransport, err)
		}
		return nil, errors.Join(ErrDecode, err)
	}

	slog.Info("SFO flights data statistics",
		"rows", table.Len(),
		"columns", table.Columns(),
	)

	return table, nil
}
