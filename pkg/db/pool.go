// Package db provides the Postgres connection pool, migrations and the
// result-cache repository, all via pgx.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

const (
	// ApplicationName is reported to Postgres in pg_stat_activity.
	ApplicationName = "jsonrpc11"

	maxConns = 20
	minConns = 2
)

// PoolConfig parses databaseURL, raises the pool limits to at least 20 max and
// 2 min connections and sets the application name unless the URL sets one.
func PoolConfig(databaseURL string) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	if config.ConnConfig.RuntimeParams["application_name"] == "" {
		config.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	if config.MaxConns < maxConns {
		config.MaxConns = maxConns
	}
	if config.MinConns < minConns {
		config.MinConns = minConns
	}
	return config, nil
}

// NewPool connects to databaseURL and pings it.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := PoolConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established (%s)", logPrefix, config.ConnConfig.Database))
	return pool, nil
}
