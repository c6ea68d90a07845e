// Package config provides centralized configuration management for the
// bot. Precedence, lowest to highest: built-in defaults, environment
// variables, runtime overrides.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
)

const (
	// EnvPrefix namespaces every environment variable the bot reads.
	EnvPrefix = "LINKBOT_"

	appName = "linkbot"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load merges defaults, environment variables, and runtime overrides
// into a typed Config. Safe to call multiple times (e.g. on reload).
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	_ = ctx

	merged := defaults()

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	deepMerge(merged, envOverrides)

	for _, overrides := range runtimeOverrides {
		deepMerge(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)

	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// defaults is the base configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"telegram": map[string]any{
			"token":        "",
			"api_base_url": "https://api.telegram.org",
			"poll_timeout": "30s",
			"paused":       false,
		},
		"affiliate": map[string]any{
			"app_key":      "",
			"secret":       "",
			"tracking_id":  "bargainbliss_ai_bot",
			"base_url":     "https://api-sg.aliexpress.com/sync",
			"timeout":      "8s",
			"max_attempts": 3,
			"backoff":      "500ms",
		},
		"quota": map[string]any{
			"limit":  60,
			"window": "1h",
		},
		"keepalive": map[string]any{
			"enabled":       true,
			"primary_url":   "",
			"fallback_urls": []string{},
			"interval":      "30s",
			"timeout":       "5s",
		},
		"server": map[string]any{
			"host":             "localhost",
			"port":             8080,
			"read_timeout":     "30s",
			"write_timeout":    "30s",
			"idle_timeout":     "120s",
			"shutdown_timeout": "10s",
		},
		"store": map[string]any{
			"driver":     "libsql",
			"path":       DefaultStorePath(),
			"url":        "",
			"auth_token": "",
		},
		"logging": map[string]any{
			"level":   "info",
			"profile": "structured",
		},
		"metrics": map[string]any{
			"enabled": true,
			"port":    9090,
		},
		"health": map[string]any{
			"enabled": true,
		},
		"debug": map[string]any{
			"enabled":       false,
			"pprof_enabled": false,
		},
	}
}

// getEnvSpecs returns environment variable specifications for config
// mapping. Legacy unprefixed names come first so the prefixed forms win
// when both are set.
func getEnvSpecs() []EnvVarSpec {
	prefix := EnvPrefix

	return []EnvVarSpec{
		// Legacy aliases kept for hosting platforms that inject them
		{Name: "TELEGRAM_BOT_TOKEN", Path: []string{"telegram", "token"}, Type: EnvString},
		{Name: "ALIEXPRESS_APP_KEY", Path: []string{"affiliate", "app_key"}, Type: EnvString},
		{Name: "ALIEXPRESS_APP_SECRET", Path: []string{"affiliate", "secret"}, Type: EnvString},
		{Name: "RENDER_EXTERNAL_URL", Path: []string{"keepalive", "primary_url"}, Type: EnvString},
		{Name: "PAUSE_BOT", Path: []string{"telegram", "paused"}, Type: EnvBool},

		// Telegram config
		{Name: prefix + "TELEGRAM_TOKEN", Path: []string{"telegram", "token"}, Type: EnvString},
		{Name: prefix + "TELEGRAM_API_BASE_URL", Path: []string{"telegram", "api_base_url"}, Type: EnvString},
		{Name: prefix + "TELEGRAM_POLL_TIMEOUT", Path: []string{"telegram", "poll_timeout"}, Type: EnvString},
		{Name: prefix + "TELEGRAM_PAUSED", Path: []string{"telegram", "paused"}, Type: EnvBool},

		// Affiliate gateway config
		{Name: prefix + "AFFILIATE_APP_KEY", Path: []string{"affiliate", "app_key"}, Type: EnvString},
		{Name: prefix + "AFFILIATE_SECRET", Path: []string{"affiliate", "secret"}, Type: EnvString},
		{Name: prefix + "AFFILIATE_TRACKING_ID", Path: []string{"affiliate", "tracking_id"}, Type: EnvString},
		{Name: prefix + "AFFILIATE_BASE_URL", Path: []string{"affiliate", "base_url"}, Type: EnvString},
		{Name: prefix + "AFFILIATE_TIMEOUT", Path: []string{"affiliate", "timeout"}, Type: EnvString},
		{Name: prefix + "AFFILIATE_MAX_ATTEMPTS", Path: []string{"affiliate", "max_attempts"}, Type: EnvInt},
		{Name: prefix + "AFFILIATE_BACKOFF", Path: []string{"affiliate", "backoff"}, Type: EnvString},

		// Quota config
		{Name: prefix + "QUOTA_LIMIT", Path: []string{"quota", "limit"}, Type: EnvInt},
		{Name: prefix + "QUOTA_WINDOW", Path: []string{"quota", "window"}, Type: EnvString},

		// Keep-alive config
		{Name: prefix + "KEEPALIVE_ENABLED", Path: []string{"keepalive", "enabled"}, Type: EnvBool},
		{Name: prefix + "KEEPALIVE_PRIMARY_URL", Path: []string{"keepalive", "primary_url"}, Type: EnvString},
		{Name: prefix + "KEEPALIVE_FALLBACK_URLS", Path: []string{"keepalive", "fallback_urls"}, Type: EnvString},
		{Name: prefix + "KEEPALIVE_INTERVAL", Path: []string{"keepalive", "interval"}, Type: EnvString},
		{Name: prefix + "KEEPALIVE_TIMEOUT", Path: []string{"keepalive", "timeout"}, Type: EnvString},

		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		// Logging config
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		// Debug config
		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},
	}
}

// deepMerge overlays src onto dst, merging nested maps in place.
func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			deepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(appName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(appName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appName + ".db"
	}
	return filepath.Join(dataDir, appName+".db")
}
