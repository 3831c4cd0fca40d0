package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationsLogPrefix = "db:migrations"

// historyTable records which migrations have been applied.
const historyTable = "jsonrpc_schema_migrations"

// ErrForwardOnly is returned by MigrationDown. Applied migrations are never reverted.
var ErrForwardOnly = errors.New("migrations are forward-only")

// Migration is one schema change read from a .sql file. Version is the file
// name without its extension, e.g. "0001_jsonrpc_cache".
type Migration struct {
	Version string
	SQL     string
}

// MigrationState pairs a migration with whether it has been applied.
type MigrationState struct {
	Version string
	Applied bool
}

// LoadMigrations reads the .sql files of dir ordered by file name.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, path, err)
		}
		out = append(out, Migration{Version: strings.TrimSuffix(name, ".sql"), SQL: string(data)})
	}
	slog.Info(fmt.Sprintf("%s - Loaded %d migrations from %s", migrationsLogPrefix, len(out), dir))
	return out, nil
}

// pending returns the migrations whose version is not in applied, in order.
func pending(migrations []Migration, applied map[string]bool) []Migration {
	var out []Migration
	for _, m := range migrations {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// states reports each migration with its applied flag.
func states(migrations []Migration, applied map[string]bool) []MigrationState {
	out := make([]MigrationState, len(migrations))
	for i, m := range migrations {
		out[i] = MigrationState{Version: m.Version, Applied: applied[m.Version]}
	}
	return out
}

// RunMigrations applies the migrations not yet recorded in the history table.
// Each migration runs in its own transaction together with its history row.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+historyTable+` (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("%s - failed to create history table: %w", migrationsLogPrefix, err)
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return err
	}
	todo := pending(migrations, applied)
	slog.Info(fmt.Sprintf("%s - %d of %d migrations pending", migrationsLogPrefix, len(todo), len(migrations)))

	for _, m := range todo {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO `+historyTable+` (version) VALUES ($1)`, m.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("%s - migration %s failed: %w", migrationsLogPrefix, m.Version, err)
		}
		slog.Info(fmt.Sprintf("%s - Applied %s", migrationsLogPrefix, m.Version))
	}
	return nil
}

// MigrationStatus reports every migration in dir and whether it has been applied.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, dir string) ([]MigrationState, error) {
	migrations, err := LoadMigrations(dir)
	if err != nil {
		return nil, err
	}
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return nil, err
	}
	return states(migrations, applied), nil
}

// MigrationDown always fails with ErrForwardOnly, naming the latest applied
// migration when there is one.
func MigrationDown(ctx context.Context, pool *pgxpool.Pool) error {
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return fmt.Errorf("%s - nothing applied: %w", migrationsLogPrefix, ErrForwardOnly)
	}
	versions := make([]string, 0, len(applied))
	for v := range applied {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	latest := versions[len(versions)-1]
	return fmt.Errorf("%s - %s cannot be reverted, restore a backup instead: %w", migrationsLogPrefix, latest, ErrForwardOnly)
}

// appliedVersions reads the history table. A missing table means nothing is applied.
func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	var exists bool
	if err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, historyTable).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%s - failed to check history table: %w", migrationsLogPrefix, err)
	}
	applied := map[string]bool{}
	if !exists {
		return applied, nil
	}

	rows, err := pool.Query(ctx, `SELECT version FROM `+historyTable)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read history: %w", migrationsLogPrefix, err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s - failed to scan history: %w", migrationsLogPrefix, err)
	}
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}
