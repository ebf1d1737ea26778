package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"blobvault/internal/domain/blob"
)

// querier is the subset of pgx.Tx / pgxpool.Pool used by the index.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Index is the Postgres Metadata Index: one row per ingested file.
type Index struct {
	db    querier
	table string
}

// NewIndex builds an Index over db writing to table (already quoted).
func NewIndex(db querier, table string) *Index {
	return &Index{db: db, table: table}
}

// Insert adds a row. An existing file id yields blob.ErrDuplicateKey.
func (i *Index) Insert(ctx context.Context, entry blob.Entry) error {
	_, err := i.db.Exec(ctx,
		`INSERT INTO `+i.table+` (file_id, file_name, file_size, file_oid) VALUES ($1, $2, $3, $4)`,
		entry.FileID, entry.FileName, entry.FileSize, entry.BlobOID,
	)
	if err != nil {
		return fmt.Errorf("insert index entry %s: %w", entry.FileID, translateError(err))
	}
	return nil
}

// Lookup returns the row for fileID or blob.ErrEntryNotFound.
func (i *Index) Lookup(ctx context.Context, fileID string) (blob.Entry, error) {
	var entry blob.Entry
	err := i.db.QueryRow(ctx,
		`SELECT file_id, file_name, file_size, file_oid, created_at FROM `+i.table+` WHERE file_id = $1`,
		fileID,
	).Scan(&entry.FileID, &entry.FileName, &entry.FileSize, &entry.BlobOID, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return blob.Entry{}, blob.ErrEntryNotFound
	}
	if err != nil {
		return blob.Entry{}, fmt.Errorf("lookup index entry %s: %w", fileID, err)
	}
	return entry, nil
}

// Remove deletes exactly the row for fileID, or returns blob.ErrEntryNotFound.
func (i *Index) Remove(ctx context.Context, fileID string) error {
	tag, err := i.db.Exec(ctx, `DELETE FROM `+i.table+` WHERE file_id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("remove index entry %s: %w", fileID, err)
	}
	if tag.RowsAffected() == 0 {
		return blob.ErrEntryNotFound
	}
	return nil
}

var _ blob.Index = (*Index)(nil)
