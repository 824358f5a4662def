// Package fetch downloads feed documents and show websites over HTTP.
package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/logging"
	"github.com/mpgirro/hemin/pkg/version"
)

const (
	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps a downloaded document.
	DefaultMaxBodyBytes = 32 << 20
)

// Config configures a Client.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Retry        errors.RetryConfig
}

// DefaultConfig returns the client defaults with the standard retry policy.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		UserAgent:    version.UserAgent(),
		MaxBodyBytes: DefaultMaxBodyBytes,
		Retry:        errors.DefaultRetryConfig(),
	}
}

// Client downloads documents with retry on transient failures.
type Client struct {
	http   *http.Client
	cfg    Config
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger for download diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client. Zero Timeout, UserAgent and MaxBodyBytes take
// their defaults; a zero Retry means a single attempt.
func NewClient(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}

	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	c.logger = logging.OrDefault(c.logger)
	return c
}

// Fetch downloads url and returns the response body. Network failures,
// 429 and 5xx responses are retried; 403 fails at once with
// ErrCodeHTTPForbidden.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	attempt := 0
	body, err := errors.RetryWithResult(ctx, c.cfg.Retry, func() ([]byte, error) {
		attempt++
		body, err := c.get(ctx, url)
		if err != nil && errors.IsRetryable(err) {
			c.logger.Debug("fetch_retry",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
		return body, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("fetch_failed", append([]any{slog.String("url", url)}, errors.LogAttrs(err)...)...)
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.ValidationError("invalid url", err).WithDetail("url", url)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.9, */*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(url, err)
	}
	defer drainAndClose(resp.Body)

	if err := checkStatus(url, resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, classifyTransport(url, err)
	}
	return body, nil
}

func classifyTransport(url string, err error) error {
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return errors.New(errors.ErrCodeNetworkTimeout, "request timed out", err).WithDetail("url", url)
	}
	return errors.NetworkError("request failed", err).WithDetail("url", url)
}

func checkStatus(url string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusForbidden:
		return errors.New(errors.ErrCodeHTTPForbidden, "access forbidden", nil).
			WithDetail("url", url).
			WithSuggestion("The host refuses hemin's requests; check the feed URL in a browser")
	}

	he := errors.New(errors.ErrCodeHTTPStatus, fmt.Sprintf("unexpected status %d", code), nil).
		WithDetail("url", url)
	if code == http.StatusTooManyRequests || code >= 500 {
		he.Retryable = true
	}
	return he
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
