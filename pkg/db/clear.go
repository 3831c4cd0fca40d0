package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearCache truncates the jsonrpc_cache table. Schema is preserved; only data is removed.
func ClearCache(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing cache table", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE jsonrpc_cache`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Cache cleared", clearLogPrefix))
	return nil
}
