// Package config provides daemon configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds jsonrpcd configuration.
type Config struct {
	// HTTP listener (HTTP_ADDR preferred, e.g. "0.0.0.0:8080")
	HTTPAddr           string        `envconfig:"HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Service
	ServicePath string `envconfig:"SERVICE_PATH" default:"/rpc"`
	ServiceFile string `envconfig:"SERVICE_FILE"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"jsonrpc11"`

	// RequestTimeout bounds each handler invocation.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"25s"`

	// COMMS: empty COMMSURL disables the NATS binding and change events.
	COMMSURL           string `envconfig:"COMMS_URL"`
	ServiceSubject     string `envconfig:"SERVICE_SUBJECT"`
	ChangeEventSubject string `envconfig:"CHANGE_EVENT_SUBJECT"`

	// Database (only needed for the postgres cache store)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// Client-side result cache
	CacheBucket string        `envconfig:"CACHE_BUCKET" default:"jsonrpc_cache"`
	CacheExpiry time.Duration `envconfig:"CACHE_EXPIRY" default:"0s"`
	CacheSize   int           `envconfig:"CACHE_SIZE" default:"1024"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForServe checks required config when running the daemon.
func (c *Config) ValidateForServe() error {
	if !strings.HasPrefix(c.ServicePath, "/") {
		return fmt.Errorf("%s - SERVICE_PATH must start with / (got %q)", logPrefix, c.ServicePath)
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("%s - SERVICE_NAME must not be empty", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.RunMigrations && c.DatabaseURL == "" {
		return fmt.Errorf("%s - RUN_MIGRATIONS requires DATABASE_URL", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, ensure-db, cache clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// ValidateForCache checks the client-side cache settings.
func (c *Config) ValidateForCache() error {
	if c.CacheExpiry < 0 {
		return fmt.Errorf("%s - CACHE_EXPIRY must not be negative", logPrefix)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%s - CACHE_SIZE must not be negative", logPrefix)
	}
	return nil
}

// ListenAddr is HTTPAddr when set, otherwise all interfaces on HTTPPort.
func (c *Config) ListenAddr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	return fmt.Sprintf(":%d", c.HTTPPort)
}
