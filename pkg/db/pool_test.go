package db

import (
	"context"
	"testing"
)

const poolTestPrefix = "db:pool_test"

func TestPoolConfig(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantApp  string
		wantMax  int32
		wantMin  int32
		wantName string
	}{
		{
			name:     "defaults applied",
			url:      "postgres://u:p@localhost:5432/jsonrpc?sslmode=disable",
			wantApp:  ApplicationName,
			wantMax:  maxConns,
			wantMin:  minConns,
			wantName: "jsonrpc",
		},
		{
			name:     "url settings kept",
			url:      "postgres://u:p@localhost:5432/jsonrpc?application_name=worker&pool_max_conns=50&pool_min_conns=5",
			wantApp:  "worker",
			wantMax:  50,
			wantMin:  5,
			wantName: "jsonrpc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := PoolConfig(tt.url)
			if err != nil {
				t.Fatalf("%s - PoolConfig: %v", poolTestPrefix, err)
			}
			if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != tt.wantApp {
				t.Errorf("%s - application_name = %q, want %q", poolTestPrefix, got, tt.wantApp)
			}
			if cfg.MaxConns < tt.wantMax || cfg.MinConns != tt.wantMin {
				t.Errorf("%s - conns = %d/%d, want at least %d/%d", poolTestPrefix, cfg.MaxConns, cfg.MinConns, tt.wantMax, tt.wantMin)
			}
			if cfg.ConnConfig.Database != tt.wantName {
				t.Errorf("%s - database = %q, want %q", poolTestPrefix, cfg.ConnConfig.Database, tt.wantName)
			}
		})
	}
}

func TestNewPool_InvalidURL(t *testing.T) {
	pool, err := NewPool(context.Background(), "invalid://not-a-valid-database-url")
	if err == nil {
		pool.Close()
		t.Fatalf("%s - expected error for invalid URL", poolTestPrefix)
	}
	if pool != nil {
		t.Errorf("%s - expected nil pool on error", poolTestPrefix)
	}
}
