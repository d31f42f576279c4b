// internal/livesearch/config.go
package livesearch

import (
	"time"

	"escapade/internal/common/config"
)

const (
	// SessionPath is where search sessions are opened.
	SessionPath = "/apiservices/pricing/v1.0"
	// PollPath is the prefix of a session's results endpoint; the handle is appended.
	PollPath = "/apiservices/pricing/uk2/v1.0/"
	// StatusComplete is the terminal value of a snapshot's Status field.
	StatusComplete = "UpdatesComplete"
)

// Config holds the protocol ceilings for one coordinator.
type Config struct {
	BaseURL            string
	SessionMaxAttempts int
	PollMaxAttempts    int
	PollInterval       time.Duration
	PageSize           int
	UnboundedPageSize  int
	MaxConcurrency     int // 0 runs every query at once
	CacheTTL           time.Duration
}

// DefaultConfig returns the provider's documented ceilings.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:            baseURL,
		SessionMaxAttempts: 20,
		PollMaxAttempts:    30,
		PollInterval:       time.Second,
		PageSize:           10,
		UnboundedPageSize:  100000,
	}
}

// ConfigFrom maps the application configuration onto Config.
func ConfigFrom(p config.ProviderConfig, s config.SearchConfig) Config {
	return Config{
		BaseURL:            p.BaseURL,
		SessionMaxAttempts: p.SessionMaxAttempts,
		PollMaxAttempts:    p.PollMaxAttempts,
		PollInterval:       config.GetDuration(p.PollInterval),
		PageSize:           p.PageSize,
		UnboundedPageSize:  p.UnboundedPageSize,
		MaxConcurrency:     p.MaxConcurrency,
		CacheTTL:           config.GetDuration(s.CacheTTL),
	}
}
