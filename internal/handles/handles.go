// Package handles selects where a device remembers the remote documents it
// works with. Drivers live under internal/infra/handles.
package handles

import (
	"context"
	"fmt"

	"healthlog/internal/infra/handles/memory"
	"healthlog/internal/infra/handles/postgres"
	infraRedis "healthlog/internal/infra/handles/redis"
	"healthlog/internal/infra/handles/sqlite"
)

// Driver names a handle store backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
)

// Store is a small string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects and parameterizes a driver.
type Config struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
	RedisURL    string
	RedisPrefix string
}

// Open returns the Store selected by cfg.Driver (default sqlite).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.New(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return postgres.New(ctx, cfg.PostgresDSN)
	case DriverRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis handle store requires a url")
		}
		return infraRedis.New(ctx, cfg.RedisURL, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown handles driver %s", driver)
	}
}
