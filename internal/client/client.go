// Package client provides the HTTP client for the assistant backend.
//
// Every request goes through a single pipeline (Client.do) that injects the
// bearer token from persisted session storage, raises the shared unauthorized
// Signal on 401 responses and normalizes error bodies into *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	apperrors "github.com/raphaelgruber/girs/internal/errors"
	"github.com/raphaelgruber/girs/internal/metrics"
)

// DefaultBaseURL is used when neither the constructor nor GIRS_API_URL set one.
const DefaultBaseURL = "http://localhost:3000"

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 5 * time.Second

// TokenSource yields the bearer token persisted by the session store.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the assistant backend over HTTP/JSON.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokens       TokenSource
	unauthorized *Signal
	metrics      *metrics.Collector
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTokenSource sets where the bearer token is read from on every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedSignal sets the signal raised on 401 responses.
func WithUnauthorizedSignal(s *Signal) Option {
	return func(c *Client) { c.unauthorized = s }
}

// WithMetrics records request timings into collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) { c.metrics = collector }
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a new API client.
// If baseURL is empty, uses GIRS_API_URL env var or defaults to localhost:3000.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("GIRS_API_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		unauthorized: NewSignal(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Unauthorized returns the signal raised whenever the backend answers 401.
func (c *Client) Unauthorized() *Signal {
	return c.unauthorized
}

// BaseURL returns the backend base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one request and returns the raw response body of a 2xx answer.
// Non-2xx answers yield an *APIError; transport failures wrap errors.ErrNetwork.
// A 401 raises the unauthorized signal exactly once for this call.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.finish(op, method, path, 0, start, err)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	// Raised before the body is read so a truncated 401 still logs out.
	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("unauthorized response, signalling logout", "op", op, "path", path)
		c.unauthorized.Raise()
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.finish(op, method, path, resp.StatusCode, start, err)
		return nil, fmt.Errorf("%w: read response: %w", apperrors.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, raw)
		c.finish(op, method, path, resp.StatusCode, start, apiErr)
		return raw, apiErr
	}

	c.finish(op, method, path, resp.StatusCode, start, nil)
	return raw, nil
}

// authorize sets the bearer header when a token is persisted. Storage read
// failures are logged and the request proceeds without credentials.
func (c *Client) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Token()
	if err != nil {
		c.logger.Error("failed to read session token", "error", err)
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// finish records metrics and logs the request outcome.
func (c *Client) finish(op, method, path string, status int, start time.Time, err error) {
	duration := time.Since(start)
	c.metrics.RecordRequest(op, duration, err != nil)

	attrs := []any{
		"op", op,
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	}
	switch {
	case err != nil:
		attrs = append(attrs, "error", err.Error())
		c.logger.Debug("request failed", attrs...)
	case duration > slowRequestThreshold:
		c.logger.Warn("slow request", attrs...)
	default:
		c.logger.Debug("request completed", attrs...)
	}
}
