// Package httpsparql is a store backend speaking the SPARQL 1.1 protocol
// over HTTP.
package httpsparql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

const (
	contentTypeQuery   = "application/sparql-query"
	contentTypeResults = "application/sparql-results+json"

	DefaultTimeout = 60 * time.Second
	userAgent      = "kifql/1.0"

	// maxErrorBody bounds how much of an error response is quoted.
	maxErrorBody = 512
)

// ErrNoBoolean is returned when an ASK response carries no boolean.
var ErrNoBoolean = errors.New("response has no boolean result")

// Client sends queries to one SPARQL endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithTimeout bounds every request, including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http = &http.Client{Timeout: d} }
}

// New returns a client for the endpoint URL.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("httpsparql: endpoint required")
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Select runs a SELECT query and returns its rows.
func (c *Client) Select(ctx context.Context, q *sparql.Query) ([]rdf.Row, error) {
	res, err := c.do(ctx, q)
	if err != nil {
		return nil, err
	}
	rows, err := res.Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", c.endpoint, err)
	}
	return rows, nil
}

// Ask runs an ASK query.
func (c *Client) Ask(ctx context.Context, q *sparql.Query) (bool, error) {
	res, err := c.do(ctx, q)
	if err != nil {
		return false, err
	}
	if res.Boolean == nil {
		return false, fmt.Errorf("failed to query %s: %w", c.endpoint, ErrNoBoolean)
	}
	return *res.Boolean, nil
}

func (c *Client) do(ctx context.Context, q *sparql.Query) (*rdf.ResultsJSON, error) {
	text := q.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeQuery)
	req.Header.Set("Accept", contentTypeResults)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("sparql request",
		zap.String("endpoint", c.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("query_bytes", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	res, err := rdf.DecodeResultsJSON(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.endpoint, err)
	}
	return res, nil
}

// StatusError reports a non-200 response from the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sparql endpoint returned %d", e.Code)
	}
	return fmt.Sprintf("sparql endpoint returned %d: %s", e.Code, e.Body)
}
