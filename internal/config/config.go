package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment when storage is postgres.
	DefaultDatabaseURL = ""

	// DefaultStorage is the default storage backend.
	DefaultStorage = StoragePostgres

	// DefaultEventsChannel is the Redis channel domain events are published to.
	DefaultEventsChannel = "taskpulse.events"

	// DefaultHandlerTimeout bounds a single event handler call.
	DefaultHandlerTimeout = 5 * time.Second

	// DefaultHandlerConcurrency limits handlers running at once per event. Zero means no limit.
	DefaultHandlerConcurrency = 0

	// DefaultMaxConns and DefaultMinConns size the database pool.
	DefaultMaxConns = 10
	DefaultMinConns = 2
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds values parsed from flags and environment.
type Config struct {
	LogLevel           string
	LogFormat          string
	Storage            string
	DatabaseURL        string
	MaxConns           int32
	MinConns           int32
	RedisURL           string
	EventsChannel      string
	HandlerTimeout     time.Duration
	HandlerConcurrency int
	Port               string
}

// Validate checks values that flags alone cannot express.
func (c Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database url is required for %s storage", ErrInvalidConfig, StoragePostgres)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}

	if c.MinConns < 0 || c.MaxConns < 1 || c.MinConns > c.MaxConns {
		return fmt.Errorf("%w: pool size must satisfy 0 <= min <= max, max >= 1 (got min=%d max=%d)",
			ErrInvalidConfig, c.MinConns, c.MaxConns)
	}
	if c.HandlerTimeout < 0 {
		return fmt.Errorf("%w: handler timeout must not be negative", ErrInvalidConfig)
	}
	if c.HandlerConcurrency < 0 {
		return fmt.Errorf("%w: handler concurrency must not be negative", ErrInvalidConfig)
	}

	return nil
}
