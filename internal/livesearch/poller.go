// internal/livesearch/poller.go
package livesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"escapade/internal/common/errors"
	commonhttp "escapade/internal/common/http"
	"escapade/internal/common/logger"
	"escapade/internal/common/metrics"
)

// PollResult is the authoritative snapshot of a session plus how it was reached.
type PollResult struct {
	Response *PollResponse
	// Attempts counts bounded polls; the final unbounded fetch is not included.
	Attempts int
	// Exhausted is set when the ceiling was hit before Status reached StatusComplete.
	// Response then holds whatever the final fetch returned.
	Exhausted bool
	// LastStatus is the last Status value read during bounded polling.
	LastStatus string
}

// Poller drives one session from its handle to a final snapshot.
type Poller struct {
	client        Doer
	endpoint      string
	maxAttempts   int
	interval      time.Duration
	pageSize      int
	unboundedSize int
	log           logger.Logger
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewPoller(client Doer, cfg Config, log logger.Logger) *Poller {
	maxAttempts := cfg.PollMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Poller{
		client:        client,
		endpoint:      strings.TrimRight(cfg.BaseURL, "/") + PollPath,
		maxAttempts:   maxAttempts,
		interval:      cfg.PollInterval,
		pageSize:      cfg.PageSize,
		unboundedSize: cfg.UnboundedPageSize,
		log:           log,
		sleep:         sleepContext,
	}
}

// PollUntilComplete polls the session's first page until Status is StatusComplete
// or maxAttempts polls were made, sleeping the interval between polls. A poll that
// fails or cannot be read still counts as an attempt. It then fetches every result
// once with the unbounded page size and returns that snapshot. Hitting the ceiling
// is not an error.
func (p *Poller) PollUntilComplete(ctx context.Context, handle string) (PollResult, error) {
	result := PollResult{}
	completed := false

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		result.Attempts = attempt

		status, err := p.readStatus(ctx, handle)
		if err != nil {
			p.log.Debug("Poll attempt unreadable", map[string]interface{}{
				"session": handle,
				"attempt": attempt,
				"error":   err,
			})
		} else {
			result.LastStatus = status
			if status == StatusComplete {
				completed = true
				break
			}
		}

		if attempt < p.maxAttempts {
			if err := p.sleep(ctx, p.interval); err != nil {
				return result, errors.NewProviderRequestFailedError("poll", err)
			}
		}
	}
	metrics.PollAttempts.Observe(float64(result.Attempts))

	result.Exhausted = !completed
	if result.Exhausted {
		p.log.Warn("Poll ceiling reached, using last snapshot", map[string]interface{}{
			"session":    handle,
			"attempts":   result.Attempts,
			"lastStatus": result.LastStatus,
		})
	}

	resp, err := p.fetchAll(ctx, handle)
	if err != nil {
		return result, errors.NewProviderRequestFailedError("final fetch", err)
	}
	result.Response = resp
	return result, nil
}

func (p *Poller) readStatus(ctx context.Context, handle string) (string, error) {
	body, err := p.get(ctx, handle, p.pageSize, "poll")
	if err != nil {
		return "", err
	}

	var s statusOnly
	if err := json.Unmarshal(body, &s); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	if s.Status == nil {
		return "", fmt.Errorf("status field missing")
	}
	return *s.Status, nil
}

// fetchAll returns the unbounded snapshot. A body that does not decode is still
// returned, as Raw only, for the normalizer to reject.
func (p *Poller) fetchAll(ctx context.Context, handle string) (*PollResponse, error) {
	body, err := p.get(ctx, handle, p.unboundedSize, "final")
	if err != nil {
		return nil, err
	}

	resp, decodeErr := DecodePollResponse(body)
	if decodeErr != nil {
		p.log.Warn("Final snapshot is not valid JSON", map[string]interface{}{
			"session": handle,
			"error":   decodeErr,
		})
	}
	return resp, nil
}

func (p *Poller) get(ctx context.Context, handle string, pageSize int, operation string) ([]byte, error) {
	q := url.Values{}
	q.Set("pageIndex", "0")
	q.Set("pageSize", strconv.Itoa(pageSize))
	target := p.endpoint + url.PathEscape(handle) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}

	resp, err := p.client.DoWithContext(ctx, req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(operation, "error").Inc()
		return nil, err
	}
	defer commonhttp.DrainAndClose(resp)

	metrics.ProviderRequests.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned status %d", operation, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", operation, err)
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
