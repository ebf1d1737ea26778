package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// QuoteTable returns a sanitized, optionally schema-qualified table identifier.
func QuoteTable(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("table name is required")
	}
	parts := strings.Split(name, ".")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return "", fmt.Errorf("invalid table name %q", name)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

// EnsureSchema creates the Metadata Index table if it does not exist. The
// unique file_oid keeps a large object referenced by at most one row.
func EnsureSchema(ctx context.Context, db execer, table string) error {
	stmt := `CREATE TABLE IF NOT EXISTS ` + table + ` (
    file_id    TEXT PRIMARY KEY,
    file_name  TEXT NOT NULL,
    file_size  BIGINT NOT NULL,
    file_oid   OID NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure index schema: %w", err)
	}
	return nil
}
