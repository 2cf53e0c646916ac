// Package backend is the HTTP client for the curation backend.
//
// Responses are decoded loosely: JSON is first read into generic values
// and then mapped onto domain types with mapstructure, so missing or
// oddly-typed optional fields degrade to zero values instead of failing
// the whole payload.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SessionHeader carries the client session id on every request.
const SessionHeader = "X-Session-ID"

// Client talks to the backend API.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
	logger     *slog.Logger
	retries    int
	backoff    time.Duration
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// ErrMalformed is wrapped by errors for responses that are not valid JSON
// or do not have the expected shape.
var ErrMalformed = errors.New("malformed response")

// ErrRejected is wrapped by errors for requests the backend answered with
// an explicit error status.
var ErrRejected = errors.New("rejected by backend")

// TransientError marks a failure worth retrying later: the connection
// failed, the server answered non-2xx, or the body could not be decoded.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a network-level failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(c *Client) {
		c.sessionID = id
	}
}

// WithRetries sets how often idempotent reads are retried on 429 and 5xx,
// and the base delay of the exponential backoff.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.backoff = backoff
	}
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: uuid.NewString(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  slog.New(slog.DiscardHandler),
		retries: 2,
		backoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// SessionID returns the id sent in SessionHeader.
func (c *Client) SessionID() string { return c.sessionID }

// do sends a request and returns the decoded JSON body as generic values.
// GET requests are retried on 429 and 5xx.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	op := method + " " + path

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	retries := 0
	if method == http.MethodGet {
		retries = c.retries
	}

	var lastErr *APIError
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(c.backoffDelay(attempt, lastErr))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to build %s request: %w", op, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(SessionHeader, c.sessionID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		started := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &TransientError{Op: op, Err: err}
		}

		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, &TransientError{Op: op, Err: err}
		}
		c.logger.Debug("backend request", "op", op, "status", resp.StatusCode, "duration", time.Since(started))

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if len(bytes.TrimSpace(data)) == 0 {
				return nil, nil
			}
			var out any
			if err := json.Unmarshal(data, &out); err != nil {
				return nil, &TransientError{Op: op, Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
			}
			return out, nil
		}

		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: truncateBody(data, maxErrorBody)}

		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = apiErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = apiErr
			continue
		}
		return nil, &TransientError{Op: op, Err: apiErr}
	}

	return nil, &TransientError{Op: op, Err: lastErr}
}

// backoffDelay returns the wait before a retry attempt.
func (c *Client) backoffDelay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.backoff * time.Duration(1<<(attempt-1))
}

const maxErrorBody = 512

// truncateBody returns at most n bytes of data without splitting a rune.
func truncateBody(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return string(data[:cut])
}
