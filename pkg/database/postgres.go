package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-migrate/pkg/retry"
)

// The wizard state is a single row read and rewritten per request, so the
// pool stays small and connections are recycled aggressively.
const (
	defaultStateMaxConns     int32 = 5
	stateConnMaxLifetime           = time.Hour
	stateConnMaxIdleTime           = 30 * time.Minute
	stateHealthCheckInterval       = time.Minute
)

// DB is the pool backing the postgres wizard state store.
type DB struct {
	*pgxpool.Pool
}

// Config describes the postgres state store connection.
type Config struct {
	URL            string
	MaxConnections int32 // 0 uses defaultStateMaxConns
}

// NewConnection opens the state store pool and waits for postgres to answer.
// Pings are retried while the failure looks transient, which covers a
// database container that is still starting.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := statePoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store pool: %w", err)
	}

	if err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("state store did not answer ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func statePoolConfig(cfg *Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state store URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = defaultStateMaxConns
	}
	poolConfig.MaxConnLifetime = stateConnMaxLifetime
	poolConfig.MaxConnIdleTime = stateConnMaxIdleTime
	poolConfig.HealthCheckPeriod = stateHealthCheckInterval
	return poolConfig, nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.Pool.Close()
}
