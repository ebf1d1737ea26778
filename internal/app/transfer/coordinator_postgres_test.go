package transfer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobvault/internal/infra/postgres"
	errs "blobvault/internal/shared/errors"
	"blobvault/internal/shared/logging"
	"blobvault/internal/testutil"
)

func TestCoordinatorAgainstPostgres(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	ctx := context.Background()

	store, err := postgres.New(db.Pool, "blob_files")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	c, err := New(store, WithLogger(logging.Nop(), logging.Nop()))
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x41}, 40000)
	ingested, err := c.Ingest(ctx, "report.txt", 40000, payload)
	require.NoError(t, err)
	assert.True(t, db.LargeObjectExists(t, ingested.Handle.OID))

	file, err := c.Retrieve(ctx, ingested.FileID)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", file.FileName)
	assert.Equal(t, payload, file.Data)

	require.NoError(t, c.Purge(ctx, ingested.FileID))
	assert.False(t, db.LargeObjectExists(t, ingested.Handle.OID))

	_, err = c.Retrieve(ctx, ingested.FileID)
	assert.True(t, errs.IsNotFound(err))
	assert.True(t, errs.IsNotFound(c.Purge(ctx, ingested.FileID)))
}

func TestPurgeOfUnlinkedBlobAgainstPostgres(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	ctx := context.Background()

	store, err := postgres.New(db.Pool, "blob_files")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	c, err := New(store, WithLogger(logging.Nop(), logging.Nop()))
	require.NoError(t, err)

	ingested, err := c.Ingest(ctx, "orphan.txt", 3, []byte("abc"))
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, "SELECT lo_unlink($1)", ingested.Handle.OID)
	require.NoError(t, err)

	err = c.Purge(ctx, ingested.FileID)
	assert.True(t, errs.IsNotFound(err))
	_, err = c.Describe(ctx, ingested.FileID)
	assert.True(t, errs.IsNotFound(err), "index row must be gone")
}
