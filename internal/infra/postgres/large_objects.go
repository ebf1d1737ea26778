package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"blobvault/internal/domain/blob"
)

// largeObjects adapts pgx large-object support to blob.LargeObjects.
type largeObjects struct {
	tx pgx.Tx
}

func (l largeObjects) Create(ctx context.Context) (uint32, error) {
	los := l.tx.LargeObjects()
	oid, err := los.Create(ctx, 0)
	if err != nil {
		return 0, translateError(err)
	}
	return oid, nil
}

func (l largeObjects) Open(ctx context.Context, oid uint32, mode blob.OpenMode) (blob.LargeObject, error) {
	los := l.tx.LargeObjects()
	obj, err := los.Open(ctx, oid, openMode(mode))
	if err != nil {
		return nil, translateError(err)
	}
	return obj, nil
}

func (l largeObjects) Unlink(ctx context.Context, oid uint32) error {
	los := l.tx.LargeObjects()
	return translateError(los.Unlink(ctx, oid))
}

const largeObjectExistsSQL = `SELECT EXISTS (SELECT 1 FROM pg_largeobject_metadata WHERE oid = $1)`

// Exists checks the catalog instead of calling lo_open, whose failure
// would abort the transaction.
func (l largeObjects) Exists(ctx context.Context, oid uint32) (bool, error) {
	var exists bool
	if err := l.tx.QueryRow(ctx, largeObjectExistsSQL, oid).Scan(&exists); err != nil {
		return false, translateError(err)
	}
	return exists, nil
}

func openMode(mode blob.OpenMode) pgx.LargeObjectMode {
	if mode == blob.ModeWrite {
		return pgx.LargeObjectModeWrite
	}
	return pgx.LargeObjectModeRead
}

var _ blob.LargeObjects = largeObjects{}
