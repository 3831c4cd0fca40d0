// Package main is the entrypoint for jsonrpcd, a daemon hosting a demonstration JSON-RPC 1.1 service.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/jsonrpc11/internal/config"
	"github.com/morezero/jsonrpc11/internal/server"
	"github.com/morezero/jsonrpc11/pkg/db"
)

const usage = `Usage: jsonrpcd [command]
       jsonrpcd serve              Start the service (HTTP, optional COMMS binding).
       jsonrpcd migrate up          Run database migrations.
       jsonrpcd migrate down        Roll back one migration (not supported; migrations are forward-only).
       jsonrpcd migrate status      Show migration status.
       jsonrpcd ensure-db [name]    Create database if missing (default name: jsonrpc_test). Uses DATABASE_URL host/user.
       jsonrpcd cache clear         Truncate the result cache table; schema is preserved.
       jsonrpcd cache purge         Delete expired result cache rows.

Commands:
  serve           (default) Start the service.
  migrate up      Run database migrations only.
  migrate down    Roll back last migration (optional).
  migrate status  Show current migration status.
  ensure-db [name] Create database (e.g. jsonrpc_test) on same host as DATABASE_URL.
  cache clear     Truncate cached results.
  cache purge     Remove expired cached results.

Environment: HTTP_ADDR / HTTP_PORT (default :8080), SERVICE_PATH (default /rpc), SERVICE_FILE,
SERVICE_NAME, COMMS_URL (optional), DATABASE_URL (optional for serve), MIGRATION_PATH, LOG_LEVEL.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("jsonrpcd migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("jsonrpcd migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("jsonrpcd migrate status: %v", err)
			}
		case "down":
			if err := runMigrateDown(); err != nil {
				log.Fatalf("jsonrpcd migrate down: %v", err)
			}
		default:
			log.Fatalf("jsonrpcd migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "cache":
		if len(args) < 2 {
			log.Fatalf("jsonrpcd cache: require subcommand (clear, purge)")
		}
		sub := args[1]
		switch sub {
		case "clear":
			if err := runCacheClear(); err != nil {
				log.Fatalf("jsonrpcd cache clear: %v", err)
			}
		case "purge":
			if err := runCachePurge(); err != nil {
				log.Fatalf("jsonrpcd cache purge: %v", err)
			}
		default:
			log.Fatalf("jsonrpcd cache: unknown subcommand %q (use clear, purge)", sub)
		}
		return
	case "ensure-db":
		dbName := "jsonrpc_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("jsonrpcd ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(installDemo); err != nil {
		log.Fatalf("jsonrpcd: %v", err)
	}
}

// withPool loads config, validates it for DB commands and runs fn with a connected pool.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func runMigrateUp() error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
		migrations, err := db.LoadMigrations(cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
		if err := db.RunMigrations(ctx, pool, migrations); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

func runMigrateStatus() error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
		st, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
		if err != nil {
			return err
		}
		printMigrationStatus(os.Stdout, st, cfg.MigrationPath)
		return nil
	})
}

func runMigrateDown() error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
		return db.MigrationDown(ctx, pool)
	})
}

func printMigrationStatus(w io.Writer, st []db.MigrationState, dir string) {
	if len(st) == 0 {
		fmt.Fprintf(w, "No migrations in %s\n", dir)
		return
	}
	pending := 0
	for _, s := range st {
		state := "applied"
		if !s.Applied {
			state = "pending"
			pending++
		}
		fmt.Fprintf(w, "%-8s %s\n", state, s.Version)
	}
	if pending > 0 {
		fmt.Fprintf(w, "%d pending, run 'jsonrpcd migrate up'\n", pending)
	}
}

func runCacheClear() error {
	return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
		if err := db.ClearCache(ctx, pool); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		return nil
	})
}

func runCachePurge() error {
	return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
		n, err := db.NewRepository(pool).PurgeExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired entries.\n", n)
		return nil
	})
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	targetURL, err := databaseURLFor(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

// databaseURLFor replaces the database name of databaseURL, keeping host, credentials and query.
func databaseURLFor(databaseURL, dbName string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}
