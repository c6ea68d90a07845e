package config

import (
	"errors"
	"strings"
	"time"
)

// Config represents the complete application configuration, merged from
// defaults, environment variables, and runtime overrides.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Affiliate AffiliateConfig `mapstructure:"affiliate"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	KeepAlive KeepAliveConfig `mapstructure:"keepalive"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

// TelegramConfig contains Bot API credentials and polling behavior.
// Token is a credential: it is embedded in request URLs only and must
// never appear in logs.
type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	APIBaseURL  string        `mapstructure:"api_base_url"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	Paused      bool          `mapstructure:"paused"`
}

// AffiliateConfig contains the affiliate gateway credentials and retry
// behavior. Secret is a credential and must never appear in logs.
type AffiliateConfig struct {
	AppKey      string        `mapstructure:"app_key"`
	Secret      string        `mapstructure:"secret"`
	TrackingID  string        `mapstructure:"tracking_id"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// QuotaConfig contains the per-user sliding-window rate limit.
type QuotaConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// KeepAliveConfig contains the self-ping scheduler settings.
type KeepAliveConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PrimaryURL   string        `mapstructure:"primary_url"`
	FallbackURLs []string      `mapstructure:"fallback_urls"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig contains logging configuration.
// Profiles: SIMPLE (console only, CLI commands) and STRUCTURED
// (structured sinks with correlation IDs, serve mode).
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// ValidateCredentials checks that serve mode has everything it needs to
// talk to Telegram and the affiliate gateway.
func (c *Config) ValidateCredentials() error {
	var missing []string

	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, "telegram.token")
	}
	if strings.TrimSpace(c.Affiliate.AppKey) == "" {
		missing = append(missing, "affiliate.app_key")
	}
	if strings.TrimSpace(c.Affiliate.Secret) == "" {
		missing = append(missing, "affiliate.secret")
	}

	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}
