// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Provider ProviderConfig          `mapstructure:"provider"`
	Search   SearchConfig            `mapstructure:"search"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProviderConfig describes the live pricing endpoint and the retry ceilings used against it.
type ProviderConfig struct {
	BaseURL            string  `mapstructure:"base_url"`
	Host               string  `mapstructure:"host"`
	APIKey             string  `mapstructure:"api_key"`
	Timeout            int     `mapstructure:"timeout"` // milliseconds, per request
	SessionMaxAttempts int     `mapstructure:"session_max_attempts"`
	PollMaxAttempts    int     `mapstructure:"poll_max_attempts"`
	PollInterval       int     `mapstructure:"poll_interval"` // milliseconds
	PageSize           int     `mapstructure:"page_size"`
	UnboundedPageSize  int     `mapstructure:"unbounded_page_size"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"` // 0 means unlimited
	Burst              int     `mapstructure:"burst"`
	MaxConcurrency     int     `mapstructure:"max_concurrency"` // 0 means one goroutine per query
}

// SearchConfig holds defaults applied to incoming queries and result handling.
type SearchConfig struct {
	DefaultCountry  string `mapstructure:"default_country"`
	DefaultCurrency string `mapstructure:"default_currency"`
	DefaultLocale   string `mapstructure:"default_locale"`
	DefaultAdults   int    `mapstructure:"default_adults"`
	CacheTTL        int    `mapstructure:"cache_ttl"` // milliseconds, 0 disables caching
	MaxQueries      int    `mapstructure:"max_queries"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the health/metrics listener settings.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
