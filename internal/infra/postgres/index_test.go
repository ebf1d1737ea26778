package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobvault/internal/domain/blob"
)

const testTable = `"blob_files"`

var testTime = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func TestIndexInsertPersistsRow(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	entry := blob.Entry{FileID: "f-1", FileName: "report.txt", FileSize: 40000, BlobOID: 16400}
	pool.ExpectExec(regexp.QuoteMeta(`INSERT INTO "blob_files" (file_id, file_name, file_size, file_oid)`)).
		WithArgs(entry.FileID, entry.FileName, entry.FileSize, entry.BlobOID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewIndex(pool, testTable).Insert(context.Background(), entry))
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestIndexInsertDuplicateIsCheckedFailure(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectExec("INSERT INTO").
		WithArgs("f-1", "a.bin", int64(1), uint32(7)).
		WillReturnError(&pgconn.PgError{Code: sqlStateUniqueViolation, Message: `duplicate key value violates unique constraint "blob_files_pkey"`})

	err = NewIndex(pool, testTable).Insert(context.Background(), blob.Entry{FileID: "f-1", FileName: "a.bin", FileSize: 1, BlobOID: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, blob.ErrDuplicateKey)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestIndexLookupScansRow(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"file_id", "file_name", "file_size", "file_oid", "created_at"}).
		AddRow("f-1", "report.txt", int64(40000), uint32(16400), created)
	pool.ExpectQuery(regexp.QuoteMeta(`SELECT file_id, file_name, file_size, file_oid, created_at FROM "blob_files" WHERE file_id = $1`)).
		WithArgs("f-1").
		WillReturnRows(rows)

	entry, err := NewIndex(pool, testTable).Lookup(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, blob.Entry{FileID: "f-1", FileName: "report.txt", FileSize: 40000, BlobOID: 16400, CreatedAt: created}, entry)
	assert.Equal(t, blob.Handle{OID: 16400, Size: 40000}, entry.Handle())
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestIndexLookupMissingRow(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT file_id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"file_id", "file_name", "file_size", "file_oid", "created_at"}))

	_, err = NewIndex(pool, testTable).Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, blob.ErrEntryNotFound)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestIndexRemoveDeletesExactlyOneRow(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectExec(regexp.QuoteMeta(`DELETE FROM "blob_files" WHERE file_id = $1`)).
		WithArgs("f-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectExec("DELETE FROM").
		WithArgs("f-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	idx := NewIndex(pool, testTable)
	require.NoError(t, idx.Remove(context.Background(), "f-1"))
	assert.ErrorIs(t, idx.Remove(context.Background(), "f-1"), blob.ErrEntryNotFound)
	require.NoError(t, pool.ExpectationsWereMet())
}
