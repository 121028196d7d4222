// Package solr is a connection to a Solr core's JSON update handler.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/hyperjump/solrdex/internal/document"
)

const defaultTimeout = 30 * time.Second

// Error is a non-success response from Solr.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("solr returned %d: %s", e.Status, e.Message)
}

// Connection sends update commands to one Solr URL.
type Connection struct {
	baseURL string
	client  *http.Client
	retries uint64
	logger  *zap.Logger // optional; when set, logs debug events
}

// Option configures a Connection.
type Option func(*Connection)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Connection) { s.client = c }
}

// WithTimeout sets the request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(s *Connection) { s.client.Timeout = d }
}

// WithRetries retries requests that fail with a network error or a 5xx status up to
// n times with exponential backoff. Zero disables retries.
func WithRetries(n int) Option {
	return func(s *Connection) {
		if n > 0 {
			s.retries = uint64(n)
		}
	}
}

// WithLogger sets a logger for debug output (request paths, statuses).
func WithLogger(l *zap.Logger) Option {
	return func(s *Connection) { s.logger = l }
}

// New returns a connection to baseURL, such as "http://localhost:8983/solr".
func New(baseURL string, opts ...Option) (*Connection, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse solr url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("solr url %q: scheme must be http or https", baseURL)
	}
	c := &Connection{
		baseURL: strings.TrimRight(u.String(), "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the base URL.
func (c *Connection) URL() string { return c.baseURL }

// Add posts docs as a JSON array.
func (c *Connection) Add(ctx context.Context, docs []document.Payload) error {
	if len(docs) == 0 {
		return nil
	}
	return c.update(ctx, docs)
}

// DeleteByID deletes documents by id.
func (c *Connection) DeleteByID(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.update(ctx, map[string]any{"delete": ids})
}

// DeleteByQuery deletes every document matching query.
func (c *Connection) DeleteByQuery(ctx context.Context, query string) error {
	return c.update(ctx, map[string]any{"delete": map[string]string{"query": query}})
}

// Commit issues a hard commit.
func (c *Connection) Commit(ctx context.Context) error {
	return c.update(ctx, map[string]any{"commit": map[string]any{}})
}

// Ping checks that the core answers its ping handler.
func (c *Connection) Ping(ctx context.Context) error {
	return c.send(ctx, http.MethodGet, "/admin/ping?wt=json", nil)
}

func (c *Connection) update(ctx context.Context, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	return c.send(ctx, http.MethodPost, "/update?wt=json", data)
}

// send performs one request, retrying transient failures when retries are enabled.
func (c *Connection) send(ctx context.Context, method, path string, body []byte) error {
	attempt := 0
	op := func() error {
		attempt++
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		err = c.do(req)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if c.retries == 0 {
		return unwrapPermanent(op())
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	notify := func(err error, wait time.Duration) {
		if c.logger != nil {
			c.logger.Warn("solr request failed, retrying", zap.Error(err),
				zap.Int("attempt", attempt), zap.Duration("wait", wait))
		}
	}
	return backoff.RetryNotify(op, b, notify)
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// retryable reports whether err is a network failure or a 5xx response.
func retryable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Connection) do(req *http.Request) error {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("solr request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.logger != nil {
		c.logger.Debug("solr request", zap.String("method", req.Method), zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &Error{Status: resp.StatusCode, Message: errorMessage(body)}
}

// errorMessage extracts error.msg from a Solr error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Msg string `json:"msg"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Msg != "" {
		return parsed.Error.Msg
	}
	return strings.TrimSpace(string(body))
}
