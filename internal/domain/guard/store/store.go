// Package store provides the persistence drivers behind the login
// failure tracker. All drivers share one model: a per-identifier list of
// failure timestamps, pruned lazily as they age out of the window.
package store

import (
	"context"
	"time"
)

// FailureStore is the behaviour required by the failure tracker.
type FailureStore interface {
	Append(ctx context.Context, identifier string, at time.Time) error
	List(ctx context.Context, identifier string) ([]time.Time, error)
	Prune(ctx context.Context, identifier string, cutoff time.Time) error
	Clear(ctx context.Context, identifier string) error
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
	SQLite *SQLiteConfig
}

// SQLiteConfig provides the database dependency.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
