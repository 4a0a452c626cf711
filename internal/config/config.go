// Package config defines the service configuration and how it is loaded.
//
// Conventions:
// - New(ctx) returns a Config holding every default.
// - Load layers a YAML file, a .env file and IGOT_* variables over New.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// View cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Store selects the report store backend.
	Store           string `koanf:"store"`
	SQLitePath      string `koanf:"sqlite_path"`
	MongoURI        string `koanf:"mongo_uri"`
	MongoDatabase   string `koanf:"mongo_database"`
	MongoCollection string `koanf:"mongo_collection"`

	// Cache selects where rendered views are cached.
	Cache         string        `koanf:"cache"`
	CacheSize     int           `koanf:"cache_size"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`

	// Locale drives the chart axis date labels.
	Locale string `koanf:"locale"`
	// CORSOrigins lists the allowed browser origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// ProjectorWorkers is the number of workers rebuilding chart state.
	ProjectorWorkers int `koanf:"projector_workers"`
	// ProjectorQueueSize bounds pending projection requests.
	ProjectorQueueSize int `koanf:"projector_queue_size"`
}

// New creates a Config with defaults. Context is accepted first to match the
// project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":5000",
		ShutdownTimeout:    10 * time.Second,
		Store:              StoreSQLite,
		SQLitePath:         "data/igot.db",
		MongoURI:           "mongodb://localhost:27017/igot",
		MongoDatabase:      "igot",
		MongoCollection:    "reports",
		Cache:              CacheMemory,
		CacheSize:          128,
		CacheTTL:           time.Minute,
		RedisAddr:          "localhost:6379",
		Locale:             "en-IN",
		CORSOrigins:        []string{"*"},
		ProjectorWorkers:   min(runtime.NumCPU(), 2),
		ProjectorQueueSize: 1024,
	}
}

// Validate checks the values Load cannot coerce.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains([]string{StoreMemory, StoreSQLite, StoreMongo}, c.Store):
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case !slices.Contains([]string{CacheMemory, CacheRedis, CacheNone}, c.Cache):
		return fmt.Errorf("%w: unknown cache %q", ErrInvalidConfig, c.Cache)
	case c.Store == StoreSQLite && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
	case c.Store == StoreMongo && c.MongoURI == "":
		return fmt.Errorf("%w: mongo_uri must not be empty", ErrInvalidConfig)
	case c.CacheSize < 1:
		return fmt.Errorf("%w: cache_size must be positive", ErrInvalidConfig)
	case c.ProjectorWorkers < 1:
		return fmt.Errorf("%w: projector_workers must be positive", ErrInvalidConfig)
	case c.ProjectorQueueSize < 1:
		return fmt.Errorf("%w: projector_queue_size must be positive", ErrInvalidConfig)
	}
	return nil
}
