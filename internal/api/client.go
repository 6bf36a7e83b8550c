// Package api is the HTTP client for the compliance backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/caseworker/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 60 * time.Second
	// maxErrorBody bounds how much of a failed response is read for logging.
	maxErrorBody = 64 << 10
)

// Client talks to the backend. Every request carries a request id and, when
// a token source is configured, the current session token.
type Client struct {
	httpClient *http.Client
	tokens     oauth2.TokenSource
	baseURL    string
	authHeader string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the transport timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTokenSource attaches session credentials to every request.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithAuthHeader sends the raw token in the named header instead of
// "Authorization: Bearer".
func WithAuthHeader(name string) Option {
	return func(c *Client) {
		c.authHeader = name
	}
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call.
type request struct {
	body        io.Reader
	out         any
	method      string
	path        string
	route       string
	contentType string
}

func (c *Client) doJSON(ctx context.Context, method, path, route string, in, out any) error {
	req := request{method: method, path: path, route: route, out: out}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		req.body = bytes.NewReader(payload)
		req.contentType = "application/json"
	}
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, r request) error {
	httpReq, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	if err := c.authorize(httpReq); err != nil {
		metrics.APIRequests.WithLabelValues(r.method, r.route, "error").Inc()
		slog.Error("API call failed", "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		return err
	}

	slog.Debug("Backend request", "method", r.method, "path", r.path, "request_id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.APIRequestDuration.WithLabelValues(r.route).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(r.method, r.route, "error").Inc()
		slog.Error("API call failed", "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.APIRequests.WithLabelValues(r.method, r.route, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{
			Method:     r.method,
			Path:       r.path,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(body),
		}
		slog.Error("API call failed",
			"method", r.method,
			"path", r.path,
			"status", resp.StatusCode,
			"request_id", requestID,
			"body", string(body))
		return apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", r.method, r.path, err)
	}
	if r.out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, r.out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokens == nil {
		return nil
	}

	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain session token: %w", err)
	}

	if c.authHeader != "" {
		req.Header.Set(c.authHeader, token.AccessToken)
		return nil
	}
	token.SetAuthHeader(req)
	return nil
}

func userPath(userID int, suffix string) string {
	return "/api/v1/users/" + strconv.Itoa(userID) + suffix
}
