package blob

import (
	"context"
	"fmt"
	"io"

	errs "blobvault/internal/shared/errors"
)

// Writer streams an in-memory payload into a new large object.
type Writer struct {
	chunkSize int
}

// NewWriter returns a Writer using chunkSize, or DefaultChunkSize when chunkSize <= 0.
func NewWriter(chunkSize int) *Writer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Writer{chunkSize: chunkSize}
}

// ChunkSize returns the configured chunk size.
func (w *Writer) ChunkSize() int {
	return w.chunkSize
}

// Write creates a large object and writes payload into it in order, one
// chunk per call. It must run inside a transaction owned by the caller: on
// failure nothing is cleaned up here, the caller's rollback discards the
// object.
func (w *Writer) Write(ctx context.Context, objects LargeObjects, payload []byte) (Handle, error) {
	oid, err := objects.Create(ctx)
	if err != nil {
		return Handle{}, errs.NewStoreError(err, "create large object")
	}

	obj, err := objects.Open(ctx, oid, ModeWrite)
	if err != nil {
		return Handle{}, errs.NewStoreError(err, fmt.Sprintf("open large object %d for write", oid))
	}

	chunk := 0
	for offset := 0; offset < len(payload); offset += w.chunkSize {
		if err := ctx.Err(); err != nil {
			_ = obj.Close()
			return Handle{}, errs.NewTransferError(err, chunk)
		}
		end := min(offset+w.chunkSize, len(payload))
		n, err := obj.Write(payload[offset:end])
		if err == nil && n != end-offset {
			err = io.ErrShortWrite
		}
		if err != nil {
			_ = obj.Close()
			return Handle{}, errs.NewTransferError(err, chunk)
		}
		chunk++
	}

	if err := obj.Close(); err != nil {
		return Handle{}, errs.NewStoreError(err, fmt.Sprintf("close large object %d", oid))
	}
	return Handle{OID: oid, Size: int64(len(payload))}, nil
}
