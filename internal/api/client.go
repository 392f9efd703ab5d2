// Package api is the HTTP client for the AirDine REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kahan44/airdine/internal/logging"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
	maxBackoff        = 30 * time.Second
)

// Client is a thin HTTP client for the AirDine REST API.
// It injects the bearer token, refreshes it ahead of expiry and once on a
// 401, and retries transient failures with exponential backoff.
type Client struct {
	mu          sync.RWMutex
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
	tokens      TokenStore
	log         zerolog.Logger
	now         func() time.Time

	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the first retry delay; later delays double up to 30s.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.baseBackoff = d }
}

// WithTokenStore sets where bearer tokens come from.
func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "api").Logger() }
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a new AirDine HTTP client. The baseURL is the API root
// including the /api prefix (e.g. http://127.0.0.1:8000/api).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBackoff,
		tokens:      NewMemoryTokens("", ""),
		log:         zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points the client at a different API root. Requests already
// in flight keep the old one.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(
	ctx context.Context,
	path string,
	result interface{},
) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, result)
	return err
}

// Post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response. It returns the final status code.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body interface{},
	result interface{},
) (int, error) {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// do is the core HTTP method that builds the request, handles auth,
// transient-failure backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) (int, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	c.refreshIfExpiring(ctx)

	refreshed := false
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; {
		resp, respBody, err := c.send(ctx, method, path, payload)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			lastErr = fmt.Errorf("executing request %s %s: %w", method, path, err)
			if attempt < c.maxRetries {
				if werr := c.wait(ctx, c.backoff(attempt)); werr != nil {
					return 0, werr
				}
			}
			attempt++
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed {
				return resp.StatusCode, &AuthError{Message: errorMessage(respBody)}
			}
			if err := c.Refresh(ctx); err != nil {
				return resp.StatusCode, &AuthError{Message: errorMessage(respBody), Err: err}
			}
			refreshed = true
			continue

		case isTransient(resp.StatusCode):
			lastErr = &APIError{
				Status:  resp.StatusCode,
				Method:  method,
				Path:    path,
				Message: errorMessage(respBody),
			}
			if attempt < c.maxRetries {
				if werr := c.wait(ctx, c.retryAfter(resp, attempt)); werr != nil {
					return 0, werr
				}
			}
			attempt++
			continue

		case resp.StatusCode == http.StatusBadRequest:
			return resp.StatusCode, &ValidationError{Message: errorMessage(respBody)}

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return resp.StatusCode, &APIError{
				Status:  resp.StatusCode,
				Method:  method,
				Path:    path,
				Message: errorMessage(respBody),
			}
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return resp.StatusCode, nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, fmt.Errorf(
				"unmarshaling response from %s %s: %w",
				method, path, err,
			)
		}

		return resp.StatusCode, nil
	}

	return 0, fmt.Errorf(
		"max retries (%d) exceeded: %w", c.maxRetries, lastErr,
	)
}

// send performs one request and returns the response with its body read.
func (c *Client) send(
	ctx context.Context,
	method, path string,
	payload []byte,
) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access, _, err := c.tokens.Tokens(); err == nil && access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("request_id", reqID).
			Str("method", method).Str("path", path).Msg("request failed")
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response body: %w", err)
	}

	c.log.Debug().
		Str("request_id", reqID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request")

	return resp, respBody, nil
}

// refreshResponse is the body of POST /auth/token/refresh/.
type refreshResponse struct {
	Access string `json:"access"`
}

// Refresh exchanges the refresh token for a new access token and stores it.
func (c *Client) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	_, refresh, err := c.tokens.Tokens()
	if err != nil {
		return fmt.Errorf("reading tokens: %w", err)
	}
	if refresh == "" {
		return errors.New("no refresh token")
	}

	payload, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return fmt.Errorf("marshaling refresh body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL()+"/auth/token/refresh/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refreshing token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refreshing token: status %d: %s", resp.StatusCode, errorMessage(body))
	}

	var rr refreshResponse
	if err := json.Unmarshal(body, &rr); err != nil || rr.Access == "" {
		return fmt.Errorf("refreshing token: malformed response")
	}

	if err := c.tokens.SaveAccess(rr.Access); err != nil {
		return fmt.Errorf("saving access token: %w", err)
	}

	c.log.Info().Str("access", logging.Redact(rr.Access)).Msg("access token refreshed")
	return nil
}

// refreshIfExpiring refreshes the access token when it is about to expire.
// Failures are logged and the request proceeds; a 401 will settle it.
func (c *Client) refreshIfExpiring(ctx context.Context) {
	access, refresh, err := c.tokens.Tokens()
	if err != nil || refresh == "" || !expiresWithin(access, refreshLeeway, c.now()) {
		return
	}
	if err := c.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("proactive token refresh failed")
	}
}

// isTransient reports whether a status is worth retrying.
func isTransient(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter reads the Retry-After header and computes a wait duration.
// Falls back to exponential backoff if the header is missing.
func (c *Client) retryAfter(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			d := time.Duration(seconds) * time.Second
			if d > maxBackoff {
				d = maxBackoff
			}
			return d
		}
	}
	return c.backoff(attempt)
}

// backoff returns base, 2*base, 4*base, ... capped at 30s.
func (c *Client) backoff(attempt int) time.Duration {
	if attempt > 16 {
		return maxBackoff
	}
	d := c.baseBackoff * time.Duration(1<<uint(attempt))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// wait sleeps for d or until ctx is done.
func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
