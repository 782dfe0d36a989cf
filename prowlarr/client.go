// Package prowlarr is a client for the Prowlarr REST API.
//
// Information Hiding:
// - HTTP transport, authentication headers and pacing hidden behind Client
// - Error payload shapes normalized into typed errors
// - Request statistics collected for debug output
package prowlarr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	domainerrors "github.com/richinex/booksearch/internal/errors"
	jsonx "github.com/richinex/booksearch/internal/json"
)

const (
	// HTTP client settings
	defaultTimeout = 30 * time.Second
	userAgent      = "booksearch/1.0"

	// Pacing: a CLI invocation makes a handful of calls, the limit only
	// guards against hammering the server from the selection loop.
	defaultRPS   = 5
	defaultBurst = 5
)

// Client is a rate-limited Prowlarr API client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	stats Stats
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit sets the request pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a client for the Prowlarr instance at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(defaultRPS, defaultBurst),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		stats:   Stats{ByEndpoint: map[string]int{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "prowlarr")
	return c
}

// Stats returns a snapshot of request statistics.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.ByEndpoint = maps.Clone(c.stats.ByEndpoint)
	if c.stats.LastError != nil {
		e := *c.stats.LastError
		s.LastError = &e
	}
	return s
}

// do executes one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	endpoint := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domainerrors.Connectivity("rate limit wait", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, domainerrors.Configurationf("invalid Prowlarr URL %q: %v", c.baseURL, err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("prowlarr request", "method", method, "path", path, "query", query.Encode())

	start := c.now()
	resp, err := c.http.Do(req)
	elapsed := c.now().Sub(start)
	c.record(endpoint, elapsed)
	if err != nil {
		c.fail(endpoint, 0, err.Error())
		return nil, domainerrors.Connectivity(fmt.Sprintf("cannot reach Prowlarr at %s", c.baseURL), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.fail(endpoint, resp.StatusCode, err.Error())
		return nil, domainerrors.Connectivity("read response", err)
	}

	c.logger.Debug("prowlarr response",
		"status", resp.StatusCode,
		"duration", elapsed,
		"bytes", len(data),
		"preview", jsonx.Preview(data),
	)

	if resp.StatusCode < 400 {
		return data, nil
	}

	msg, ok := jsonx.ErrorMessage(data)
	if !ok {
		msg = jsonx.Preview(data)
	}
	c.fail(endpoint, resp.StatusCode, msg)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domainerrors.Service("rate limit exceeded")
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domainerrors.Servicef("unauthorized: check the API key")
	case resp.StatusCode >= 500:
		return nil, domainerrors.Servicef("server error: %d %s", resp.StatusCode, msg)
	default:
		return nil, domainerrors.Servicef("API error: %d - %s", resp.StatusCode, msg)
	}
}

// getJSON decodes a 2xx response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		if msg, ok := jsonx.ErrorMessage(data); ok {
			return domainerrors.Service(msg)
		}
		return domainerrors.Servicef("invalid JSON response from %s: %s", path, jsonx.Preview(data))
	}
	return nil
}

func (c *Client) record(endpoint string, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Requests++
	c.stats.TotalTime += elapsed
	c.stats.ByEndpoint[endpoint]++
}

func (c *Client) fail(endpoint string, status int, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Errors++
	c.stats.LastError = &APIError{Time: c.now(), Endpoint: endpoint, Status: status, Message: msg}
}
