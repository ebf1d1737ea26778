package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	errs "blobvault/internal/shared/errors"
)

// Reader drains a large object into memory through a bounded chunk buffer.
type Reader struct {
	chunkSize int
}

// NewReader returns a Reader using chunkSize, or DefaultChunkSize when chunkSize <= 0.
func NewReader(chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reader{chunkSize: chunkSize}
}

// Read returns the full content of the large object behind handle. The
// result is all-or-nothing: a failure at any chunk discards what was read.
// handle.Size is not consulted.
func (r *Reader) Read(ctx context.Context, objects LargeObjects, handle Handle) ([]byte, error) {
	obj, err := objects.Open(ctx, handle.OID, ModeRead)
	if err != nil {
		if errors.Is(err, ErrHandleNotFound) {
			return nil, errs.NewNotFoundError(err)
		}
		return nil, errs.NewStoreError(err, fmt.Sprintf("open large object %d for read", handle.OID))
	}
	defer obj.Close() //nolint:errcheck // read-only descriptor

	var out bytes.Buffer
	buf := make([]byte, r.chunkSize)
	for chunk := 0; ; chunk++ {
		if err := ctx.Err(); err != nil {
			return nil, errs.NewTransferError(err, chunk)
		}
		n, err := obj.Read(buf)
		out.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			if out.Len() == 0 {
				return []byte{}, nil
			}
			return out.Bytes(), nil
		}
		if err == nil && n == 0 {
			err = io.ErrNoProgress
		}
		if err != nil {
			return nil, errs.NewTransferError(err, chunk)
		}
	}
}
