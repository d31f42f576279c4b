package searchliveflights

import (
	"fmt"
	"time"

	"escapade/internal/common/config"
	"escapade/internal/models"
)

type Config struct {
	Enabled       bool                 `mapstructure:"enabled"`
	MaxJobsActive int                  `mapstructure:"max_jobs_active"`
	Timeout       time.Duration        `mapstructure:"timeout"`
	MaxQueries    int                  `mapstructure:"max_queries"`
	Defaults      models.QueryDefaults `mapstructure:"defaults"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		// 20 queries of up to 30 one-second polls each, plus session retries.
		Timeout:    5 * time.Minute,
		MaxQueries: 20,
		Defaults: models.QueryDefaults{
			Country:  "UK",
			Currency: "GBP",
			Locale:   "en-GB",
			Adults:   1,
		},
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.MaxQueries <= 0 {
		return fmt.Errorf("max_queries must be positive")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}

	workerCfg := config.GetWorkerConfig(appConfig, TaskType)
	cfg.Enabled = workerCfg.Enabled
	if workerCfg.MaxJobsActive > 0 {
		cfg.MaxJobsActive = workerCfg.MaxJobsActive
	}
	if workerCfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(workerCfg.Timeout)
	}

	s := appConfig.Search
	if s.MaxQueries > 0 {
		cfg.MaxQueries = s.MaxQueries
	}
	if s.DefaultCountry != "" {
		cfg.Defaults.Country = s.DefaultCountry
	}
	if s.DefaultCurrency != "" {
		cfg.Defaults.Currency = s.DefaultCurrency
	}
	if s.DefaultLocale != "" {
		cfg.Defaults.Locale = s.DefaultLocale
	}
	if s.DefaultAdults > 0 {
		cfg.Defaults.Adults = s.DefaultAdults
	}
	return cfg
}
