// internal/livesearch/session.go
package livesearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"escapade/internal/common/errors"
	commonhttp "escapade/internal/common/http"
	"escapade/internal/common/logger"
	"escapade/internal/common/metrics"
)

// Doer sends a request on behalf of the protocol clients. *commonhttp.Client satisfies it.
type Doer interface {
	DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error)
}

// SessionResult is the outcome of a successful session open.
type SessionResult struct {
	Handle     string
	StatusCode int
	Attempts   int
}

// SessionClient opens provider search sessions.
type SessionClient struct {
	client      Doer
	endpoint    string
	maxAttempts int
	log         logger.Logger
}

func NewSessionClient(client Doer, cfg Config, log logger.Logger) *SessionClient {
	maxAttempts := cfg.SessionMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &SessionClient{
		client:      client,
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + SessionPath,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Open submits form until the provider answers 200 or 201 with a Location header,
// re-submitting immediately on any other outcome. After maxAttempts failures it
// returns SESSION_CREATION_FAILED with the last status seen (0 for transport errors).
func (c *SessionClient) Open(ctx context.Context, form url.Values) (SessionResult, error) {
	body := form.Encode()
	lastStatus := 0

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return SessionResult{StatusCode: lastStatus, Attempts: attempt - 1},
				errors.NewProviderRequestFailedError("session", err)
		}

		status, location, err := c.post(ctx, body)
		lastStatus = status

		if err == nil && isSessionCreated(status) {
			if handle := handleFromLocation(location); handle != "" {
				metrics.SessionAttempts.Observe(float64(attempt))
				return SessionResult{Handle: handle, StatusCode: status, Attempts: attempt}, nil
			}
		}

		c.log.Debug("Session open attempt failed", map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": c.maxAttempts,
			"status":      status,
			"error":       err,
		})
	}

	metrics.SessionAttempts.Observe(float64(c.maxAttempts))
	return SessionResult{StatusCode: lastStatus, Attempts: c.maxAttempts},
		errors.NewSessionCreationFailedError(lastStatus, c.maxAttempts)
}

func (c *SessionClient) post(ctx context.Context, body string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.DoWithContext(ctx, req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("session", "error").Inc()
		return 0, "", err
	}
	defer commonhttp.DrainAndClose(resp)

	metrics.ProviderRequests.WithLabelValues("session", strconv.Itoa(resp.StatusCode)).Inc()
	return resp.StatusCode, resp.Header.Get("Location"), nil
}

func isSessionCreated(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}

// handleFromLocation returns the text after the last '/' of a Location header.
func handleFromLocation(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	return location[strings.LastIndex(location, "/")+1:]
}
