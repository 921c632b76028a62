package fipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tidwall/gjson"

	"github.com/nao1215/fipecrawler/internal/config"
	"github.com/nao1215/fipecrawler/internal/ratelimit"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 16 << 20

// Acquirer hands out request permits. *ratelimit.Limiter implements it.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// Client posts form-encoded requests to the configured endpoints.
// A Client is safe for concurrent use, though the crawler issues one
// request at a time.
type Client struct {
	httpClient        *http.Client
	endpoints         map[string]string
	limiter           Acquirer
	maxRetries        int
	retryBackoff      time.Duration
	maxRateLimitWait  time.Duration
	defaultRetryAfter time.Duration
	logger            *slog.Logger
	now               func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client built from the configuration.
// Default headers and user agents are still applied on top of its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter replaces the token bucket built from the configuration.
func WithLimiter(l Acquirer) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger for failures and retry decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDefaultRetryAfter sets the wait used when a 429 carries no usable Retry-After.
func WithDefaultRetryAfter(d time.Duration) Option {
	return func(c *Client) {
		c.defaultRetryAfter = d
	}
}

// NewClient builds a Client from a validated configuration.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	c := &Client{
		endpoints:         cfg.APIEndpoints,
		maxRetries:        config.DefaultMaxRetries,
		retryBackoff:      cfg.RetryBackoff.Std(),
		maxRateLimitWait:  cfg.MaxRateLimitWait.Std(),
		defaultRetryAfter: config.DefaultRetryAfter,
		logger:            slog.Default(),
		now:               time.Now,
	}
	if cfg.MaxRetries != nil {
		c.maxRetries = *cfg.MaxRetries
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.limiter == nil {
		c.limiter = ratelimit.New(cfg.RateLimitCapacity, cfg.RateLimitRefill)
	}
	if c.httpClient == nil {
		hc, err := NewHTTPClient(cfg.Timeout.Std(), cfg.ProxyAddress)
		if err != nil {
			return nil, &config.Error{Key: "proxy_address", Err: err}
		}
		c.httpClient = hc
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *c.httpClient
	wrapped.Transport = &headerTransport{
		base:       base,
		headers:    cfg.DefaultHeaders,
		userAgents: cfg.UserAgents,
	}
	c.httpClient = &wrapped

	return c, nil
}

// Post sends params to the named endpoint and returns the JSON body.
//
// An endpoint missing from the configuration yields *config.Error.
// Transport failures, non-2xx answers and non-JSON bodies are retried up to
// the configured number of times with a fixed pause. A 429 answer is retried
// after its Retry-After delay without counting as a failure, until the
// cumulative wait would exceed the configured maximum. A request that cannot
// be completed yields *TransportError, which matches ErrNoResult.
func (c *Client) Post(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	target, ok := c.endpoints[endpoint]
	if !ok || target == "" {
		return nil, &config.Error{Key: "api_endpoints." + endpoint, Err: config.ErrUnknownEndpoint}
	}

	schedule := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryBackoff), uint64(c.maxRetries)) //nolint:gosec // maxRetries is validated non-negative
	failures := 0
	var waited time.Duration

	for {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, &TransportError{Endpoint: endpoint, Attempts: failures, Err: err}
		}

		res := c.do(ctx, target, params)
		if res.rateLimited {
			if waited+res.retryAfter > c.maxRateLimitWait {
				c.logger.Warn("rate limit wait exhausted, skipping request",
					"endpoint", endpoint, "waited", waited, "retry_after", res.retryAfter)
				return nil, &TransportError{Endpoint: endpoint, Attempts: failures, Err: ErrRateLimitExhausted}
			}
			waited += res.retryAfter
			c.logger.Warn("rate limited, retrying after delay",
				"endpoint", endpoint, "retry_after", res.retryAfter)
			if err := sleep(ctx, res.retryAfter); err != nil {
				return nil, &TransportError{Endpoint: endpoint, Attempts: failures, Err: err}
			}
			continue
		}
		if res.err == nil {
			return res.body, nil
		}

		failures++
		c.logger.Error("request failed", "endpoint", endpoint, "attempt", failures, "error", res.err)

		// WithMaxRetries never stops on a zero budget, so the count is checked here.
		if failures > c.maxRetries {
			return nil, &TransportError{Endpoint: endpoint, Attempts: failures, Err: res.err}
		}
		pause := schedule.NextBackOff()
		if pause == backoff.Stop {
			return nil, &TransportError{Endpoint: endpoint, Attempts: failures, Err: res.err}
		}
		c.logger.Warn("retrying request", "endpoint", endpoint, "attempt", failures+1, "backoff", pause)
		if err := sleep(ctx, pause); err != nil {
			return nil, &TransportError{Endpoint: endpoint, Attempts: failures, Err: err}
		}
	}
}

// result is the outcome of one HTTP exchange.
type result struct {
	body        []byte
	rateLimited bool
	retryAfter  time.Duration
	err         error
}

func (c *Client) do(ctx context.Context, target string, params url.Values) result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(params.Encode()))
	if err != nil {
		return result{err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result{err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize)) //nolint:errcheck // drain for connection reuse
		return result{
			rateLimited: true,
			retryAfter:  parseRetryAfter(resp.Header.Get("Retry-After"), c.now(), c.defaultRetryAfter),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize)) //nolint:errcheck // drain for connection reuse
		return result{err: &StatusError{StatusCode: resp.StatusCode}}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return result{err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if !gjson.ValidBytes(body) {
		return result{err: ErrInvalidJSON}
	}
	return result{body: body}
}

// parseRetryAfter reads a Retry-After header given either as delta-seconds
// or as an HTTP date. A missing or unparsable header yields fallback.
func parseRetryAfter(header string, now time.Time, fallback time.Duration) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsFatal reports whether err must abort the run instead of skipping a branch.
func IsFatal(err error) bool {
	var cfgErr *config.Error
	return errors.As(err, &cfgErr)
}
