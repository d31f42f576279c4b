// internal/common/http/client.go
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	headerRapidAPIHost = "x-rapidapi-host"
	headerRapidAPIKey  = "x-rapidapi-key"
)

// Client is a rate-limited HTTP client that stamps the provider's auth headers on every request.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	host       string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps outbound requests across every goroutine sharing the client.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithAuth sets the RapidAPI host and key headers.
func WithAuth(host, apiKey string) Option {
	return func(c *Client) {
		c.host = host
		c.apiKey = apiKey
	}
}

// WithHTTPClient replaces the underlying transport client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext waits for a rate-limit token, adds the auth headers and sends req.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req = req.WithContext(ctx)
	if c.host != "" {
		req.Header.Set(headerRapidAPIHost, c.host)
	}
	if c.apiKey != "" {
		req.Header.Set(headerRapidAPIKey, c.apiKey)
	}
	return c.httpClient.Do(req)
}

// DrainAndClose discards whatever is left of a response body so the connection can be reused.
func DrainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
