// Package remote is the HTTP client of the document store.
package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docflow/internal/resilience"
)

const apiPrefix = "/api/v1"

// TokenSource supplies the bearer token for each request. An empty token
// sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	executor   *resilience.Executor
	logger     *slog.Logger
	onReject   func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithExecutor routes every call through a circuit breaker.
func WithExecutor(ex *resilience.Executor) Option {
	return func(c *Client) { c.executor = ex }
}

// WithUnauthorized registers fn to run when the store answers 401 to a
// request that carried a bearer token. Login and register are exempt.
func WithUnauthorized(fn func()) Option {
	return func(c *Client) { c.onReject = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(baseURL string, tokens TokenSource, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, fn, countsAsFailure)
	} else {
		err = fn(ctx)
	}
	c.logger.Debug("remote_call",
		"operation", operation,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		"error", errString(err),
	)
	return err
}

// countsAsFailure keeps store rejections from tripping the breaker;
// only transport failures and server errors do.
func countsAsFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return !errors.Is(err, context.Canceled)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// failed decodes an error response and reports a rejected token.
func (c *Client) failed(req *http.Request, resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized && c.onReject != nil &&
		req.Header.Get("Authorization") != "" && !isAuthPath(req.URL.Path) {
		c.logger.Warn("access_token_rejected", "path", req.URL.Path)
		c.onReject()
	}
	return decodeError(resp)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}
