package memory

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobvault/internal/domain/blob"
)

func writeObject(t *testing.T, tx blob.Tx, content []byte) uint32 {
	t.Helper()
	ctx := context.Background()
	oid, err := tx.LargeObjects().Create(ctx)
	require.NoError(t, err)
	obj, err := tx.LargeObjects().Open(ctx, oid, blob.ModeWrite)
	require.NoError(t, err)
	_, err = obj.Write(content)
	require.NoError(t, err)
	require.NoError(t, obj.Close())
	return oid
}

func TestCommitPublishesObjectsAndEntries(t *testing.T) {
	store := New()
	ctx := context.Background()

	tx, err := store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err)
	oid := writeObject(t, tx, []byte("hello"))
	require.NoError(t, tx.Index().Insert(ctx, blob.Entry{FileID: "f-1", FileName: "h.txt", FileSize: 5, BlobOID: oid}))
	assert.Zero(t, store.ObjectCount(), "uncommitted writes must stay private")
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, 1, store.ObjectCount())
	assert.Equal(t, 1, store.EntryCount())

	tx, err = store.Begin(ctx, blob.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	entry, err := tx.Index().Lookup(ctx, "f-1")
	require.NoError(t, err)
	assert.False(t, entry.CreatedAt.IsZero())

	obj, err := tx.LargeObjects().Open(ctx, entry.BlobOID, blob.ModeRead)
	require.NoError(t, err)
	content, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content)
}

func TestRollbackDiscardsEverything(t *testing.T) {
	store := New()
	ctx := context.Background()

	tx, err := store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err)
	oid := writeObject(t, tx, []byte("gone"))
	require.NoError(t, tx.Index().Insert(ctx, blob.Entry{FileID: "f-1", BlobOID: oid}))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx), "second rollback is a no-op")

	assert.Zero(t, store.ObjectCount())
	assert.Zero(t, store.EntryCount())
}

func TestReadOnlyTxRejectsMutations(t *testing.T) {
	store := New()
	ctx := context.Background()

	tx, err := store.Begin(ctx, blob.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.LargeObjects().Create(ctx)
	assert.ErrorIs(t, err, errReadOnly)
	assert.ErrorIs(t, tx.Index().Insert(ctx, blob.Entry{FileID: "x"}), errReadOnly)
	assert.ErrorIs(t, tx.Index().Remove(ctx, "x"), errReadOnly)
}

func TestIndexRejectsDuplicateFileIDAndSharedHandle(t *testing.T) {
	store := New()
	ctx := context.Background()

	tx, err := store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, tx.Index().Insert(ctx, blob.Entry{FileID: "f-1", BlobOID: 1}))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	assert.ErrorIs(t, tx.Index().Insert(ctx, blob.Entry{FileID: "f-1", BlobOID: 2}), blob.ErrDuplicateKey)
	assert.ErrorIs(t, tx.Index().Insert(ctx, blob.Entry{FileID: "f-2", BlobOID: 1}), blob.ErrDuplicateKey)
	assert.ErrorIs(t, tx.Index().Remove(ctx, "nope"), blob.ErrEntryNotFound)
}

func TestUnlinkAndMissingHandles(t *testing.T) {
	store := New()
	ctx := context.Background()

	tx, err := store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err)
	oid := writeObject(t, tx, []byte("x"))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, tx.LargeObjects().Unlink(ctx, oid))
	assert.ErrorIs(t, tx.LargeObjects().Unlink(ctx, oid), blob.ErrHandleNotFound)
	_, err = tx.LargeObjects().Open(ctx, oid, blob.ModeRead)
	assert.ErrorIs(t, err, blob.ErrHandleNotFound)
	require.NoError(t, tx.Commit(ctx))

	assert.Zero(t, store.ObjectCount())
}

func TestBeginHonoursContextWhileAnotherTxIsOpen(t *testing.T) {
	store := New()

	held, err := store.Begin(context.Background(), blob.TxOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = store.Begin(ctx, blob.TxOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, held.Rollback(context.Background()))
	next, err := store.Begin(context.Background(), blob.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, next.Rollback(context.Background()))
}

func TestInjectedFaults(t *testing.T) {
	store := New()
	ctx := context.Background()
	boom := errors.New("boom")

	store.FailWriteAt(2, boom)
	tx, err := store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err)
	oid, err := tx.LargeObjects().Create(ctx)
	require.NoError(t, err)
	obj, err := tx.LargeObjects().Open(ctx, oid, blob.ModeWrite)
	require.NoError(t, err)
	_, err = obj.Write([]byte("a"))
	require.NoError(t, err)
	_, err = obj.Write([]byte("b"))
	assert.ErrorIs(t, err, boom)
	require.NoError(t, tx.Rollback(ctx))

	store.FailWriteAt(0, nil)
	store.FailCommit(boom)
	tx, err = store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err)
	writeObject(t, tx, []byte("c"))
	assert.ErrorIs(t, tx.Commit(ctx), boom)
	assert.Zero(t, store.ObjectCount())

	store.FailCommit(nil)
	tx, err = store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err, "failed commit must release the store")
	require.NoError(t, tx.Rollback(ctx))
}

func TestDelayIOAndDescriptorTracking(t *testing.T) {
	store := New()
	ctx := context.Background()

	tx, err := store.Begin(ctx, blob.TxOptions{})
	require.NoError(t, err)
	oid := writeObject(t, tx, []byte("abc"))
	assert.Zero(t, store.OpenDescriptors())

	store.DelayIO(15 * time.Millisecond)
	obj, err := tx.LargeObjects().Open(ctx, oid, blob.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, 1, store.OpenDescriptors())

	start := time.Now()
	_, err = obj.Read(make([]byte, 8))
	assert.ErrorIs(t, err, io.EOF)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	require.NoError(t, obj.Close())
	assert.Zero(t, store.OpenDescriptors())
	store.DelayIO(0)
	require.NoError(t, tx.Rollback(ctx))
}
