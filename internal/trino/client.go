package trino

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	statementPath = "/v1/statement"

	defaultRetryDelay = 100 * time.Millisecond
	defaultMaxRetries = 5
	maxErrorBody      = 4096
)

// Options configures a Client.
type Options struct {
	// BaseURL is the coordinator URL, e.g. http://localhost:8080.
	BaseURL string

	User     string
	Password string
	Catalog  string
	Schema   string

	// Source is sent as X-Trino-Source. Defaults to "fedunion".
	Source string

	HTTPClient *http.Client

	// Limiter gates every HTTP request. Nil means unlimited.
	Limiter *rate.Limiter

	// RetryDelay is the pause before retrying a 502/503/504 response.
	RetryDelay time.Duration
	MaxRetries int

	Logger  *slog.Logger
	Metrics *Metrics
}

// Column describes one result column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Result is the complete output of one statement.
type Result struct {
	QueryID string   `json:"queryId"`
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// statementResponse is one page of the statement protocol.
type statementResponse struct {
	ID      string      `json:"id"`
	NextURI string      `json:"nextUri"`
	Columns []Column    `json:"columns"`
	Data    [][]any     `json:"data"`
	Error   *QueryError `json:"error"`
	Stats   struct {
		State string `json:"state"`
	} `json:"stats"`
}

// Client submits statements to a Trino coordinator. It is safe for
// concurrent use.
type Client struct {
	base    *url.URL
	opts    Options
	http    *http.Client
	logger  *slog.Logger
	metrics *Metrics
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("trino: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("trino: base URL %q must be http or https", opts.BaseURL)
	}
	if opts.User == "" {
		return nil, fmt.Errorf("trino: user is required")
	}
	if opts.Source == "" {
		opts.Source = "fedunion"
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:    base,
		opts:    opts,
		http:    httpClient,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Query runs sql and returns every row. The statement is sent verbatim.
func (c *Client) Query(ctx context.Context, sql string) (*Result, error) {
	start := time.Now()
	res, err := c.query(ctx, sql)

	outcome := "success"
	switch {
	case err == nil:
	case IsQueryError(err):
		outcome = "query_error"
	default:
		outcome = "failure"
	}
	c.metrics.observeStatement(outcome, time.Since(start).Seconds())

	return res, err
}

func (c *Client) query(ctx context.Context, sql string) (*Result, error) {
	page, err := c.do(ctx, http.MethodPost, c.base.String()+statementPath, sql)
	if err != nil {
		return nil, err
	}

	res := &Result{QueryID: page.ID, Rows: [][]any{}}
	for {
		if page.Error != nil {
			if page.Error.QueryID == "" {
				page.Error.QueryID = page.ID
			}
			c.logger.Debug("trino query failed",
				"query_id", page.ID,
				"error_name", page.Error.ErrorName,
				"error_type", page.Error.ErrorType)
			return nil, page.Error
		}
		if len(res.Columns) == 0 && len(page.Columns) > 0 {
			res.Columns = page.Columns
		}
		res.Rows = append(res.Rows, page.Data...)

		if page.NextURI == "" {
			break
		}
		page, err = c.do(ctx, http.MethodGet, page.NextURI, "")
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", res.QueryID, err)
		}
	}
	if res.Columns == nil {
		res.Columns = []Column{}
	}

	c.logger.Debug("trino query finished",
		"query_id", res.QueryID,
		"columns", len(res.Columns),
		"rows", len(res.Rows))
	return res, nil
}

// do performs one protocol request, retrying 502/503/504 responses.
func (c *Client) do(ctx context.Context, method, target, body string) (*statementResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.RetryDelay):
			}
		}

		page, err := c.roundTrip(ctx, method, target, body)
		if err == nil {
			return page, nil
		}
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !httpErr.retryable() {
			return nil, err
		}
		c.logger.Debug("retrying trino request", "method", method, "status", httpErr.StatusCode, "attempt", attempt+1)
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, target, body string) (*statementResponse, error) {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("trino: rate limit: %w", err)
		}
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("trino: build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trino: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	c.metrics.observeRequest(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Method:     method,
			URL:        target,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	var page statementResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("trino: decode response: %w", err)
	}
	return &page, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Trino-User", c.opts.User)
	req.Header.Set("X-Trino-Source", c.opts.Source)
	if c.opts.Catalog != "" {
		req.Header.Set("X-Trino-Catalog", c.opts.Catalog)
	}
	if c.opts.Schema != "" {
		req.Header.Set("X-Trino-Schema", c.opts.Schema)
	}
	if req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "text/plain")
	}
	if c.opts.Password != "" {
		req.SetBasicAuth(c.opts.User, c.opts.Password)
	}
}
