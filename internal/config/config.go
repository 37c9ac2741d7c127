// Package config loads the service configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves fields empty.
const (
	DefaultListenAddr  = ":8317"
	DefaultJWTExpiry   = 12 * time.Hour
	DefaultTaskTimeout = 30 * time.Second
)

// JWTConfig holds admin-token signing settings.
type JWTConfig struct {
	Secret      string `yaml:"secret"`       // HMAC signing secret.
	ExpiryHours int    `yaml:"expiry-hours"` // Token lifetime in hours.
}

// Expiry returns the configured token lifetime.
func (c JWTConfig) Expiry() time.Duration {
	if c.ExpiryHours <= 0 {
		return DefaultJWTExpiry
	}
	return time.Duration(c.ExpiryHours) * time.Hour
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`       // logrus level name; defaults to info.
	File       string `yaml:"file"`        // Log file path; empty logs to stderr.
	MaxSizeMB  int    `yaml:"max-size"`    // Rotation size in megabytes.
	MaxBackups int    `yaml:"max-backups"` // Rotated files kept.
	MaxAgeDays int    `yaml:"max-age"`     // Rotated file age limit in days.
}

// DispatcherConfig bounds the background task pool.
type DispatcherConfig struct {
	MaxConcurrent      int `yaml:"max-concurrent"`       // Concurrent background tasks.
	TaskTimeoutSeconds int `yaml:"task-timeout-seconds"` // Per-task timeout.
}

// TaskTimeout returns the per-task timeout.
func (c DispatcherConfig) TaskTimeout() time.Duration {
	if c.TaskTimeoutSeconds <= 0 {
		return DefaultTaskTimeout
	}
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}

// AdminConfig seeds the initial administrator account.
type AdminConfig struct {
	Username string `yaml:"username"` // Login name; empty disables seeding.
	Password string `yaml:"password"` // Initial plaintext password, hashed at startup.
}

// Config is the full service configuration.
type Config struct {
	ListenAddr    string           `yaml:"listen-addr"`    // HTTP listen address.
	DatabaseDSN   string           `yaml:"database-dsn"`   // Postgres or SQLite DSN.
	RedisAddr     string           `yaml:"redis-addr"`     // Optional redis address for the cache fast path.
	WebhookSecret string           `yaml:"webhook-secret"` // Shared HMAC secret; empty disables verification.
	JWT           JWTConfig        `yaml:"jwt"`            // Admin token settings.
	Log           LogConfig        `yaml:"log"`            // Logging settings.
	Dispatcher    DispatcherConfig `yaml:"dispatcher"`     // Background task pool settings.
	Admin         AdminConfig      `yaml:"admin"`          // Initial admin seed.
}

// Load reads the YAML config at path and applies environment overrides. A
// missing file is not an error; env-only configuration is supported.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if strings.TrimSpace(path) != "" {
		raw, errRead := os.ReadFile(path)
		if errRead != nil {
			if !os.IsNotExist(errRead) {
				return nil, fmt.Errorf("config: read %s: %w", path, errRead)
			}
		} else if errParse := yaml.Unmarshal(raw, cfg); errParse != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errParse)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, fmt.Errorf("config: database-dsn is required")
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"DASHSYNC_LISTEN_ADDR":    &cfg.ListenAddr,
		"DASHSYNC_DATABASE_DSN":   &cfg.DatabaseDSN,
		"DASHSYNC_REDIS_ADDR":     &cfg.RedisAddr,
		"DASHSYNC_WEBHOOK_SECRET": &cfg.WebhookSecret,
		"DASHSYNC_JWT_SECRET":     &cfg.JWT.Secret,
		"DASHSYNC_LOG_LEVEL":      &cfg.Log.Level,
		"DASHSYNC_ADMIN_USERNAME": &cfg.Admin.Username,
		"DASHSYNC_ADMIN_PASSWORD": &cfg.Admin.Password,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}
}
