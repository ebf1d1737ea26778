// Package testutil holds helpers for tests that need a real Postgres server.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseURLEnv names the variable holding the test server URL.
const DatabaseURLEnv = "BLOBVAULT_TEST_DATABASE_URL"

// PostgresDB is a pool confined to a throwaway schema.
type PostgresDB struct {
	Pool   *pgxpool.Pool
	URL    string // connection string with search_path set to Schema
	Schema string
}

// NewPostgresDB connects to BLOBVAULT_TEST_DATABASE_URL and creates a
// fresh schema that is dropped when the test ends. The test is skipped
// when the variable is unset.
func NewPostgresDB(t *testing.T) *PostgresDB {
	t.Helper()

	dbURL := strings.TrimSpace(os.Getenv(DatabaseURLEnv))
	if dbURL == "" {
		t.Skipf("%s not set", DatabaseURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect admin pool: %v", err)
	}
	t.Cleanup(admin.Close)

	schema := "blobvault_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	quoted := pgx.Identifier{schema}.Sanitize()
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+quoted); err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()
		// Large objects live outside any schema; tests unlink their own.
		_, _ = admin.Exec(dropCtx, "DROP SCHEMA "+quoted+" CASCADE")
	})

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("parse %s: %v", DatabaseURLEnv, err)
	}
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = make(map[string]string)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect test pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping test pool: %v", err)
	}

	return &PostgresDB{Pool: pool, URL: cfg.ConnConfig.ConnString(), Schema: schema}
}

// LargeObjectExists reports whether a large object with oid is committed.
func (db *PostgresDB) LargeObjectExists(t *testing.T, oid uint32) bool {
	t.Helper()
	var exists bool
	err := db.Pool.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM pg_largeobject_metadata WHERE oid = $1)`, oid).Scan(&exists)
	if err != nil {
		t.Fatalf("query pg_largeobject_metadata: %v", err)
	}
	return exists
}
