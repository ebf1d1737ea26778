package blob

import (
	"context"
	"io"
)

// OpenMode selects how a large object is opened.
type OpenMode int

const (
	ModeRead OpenMode = iota
	ModeWrite
)

func (m OpenMode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "read"
}

// LargeObject is an open large-object descriptor. Reads and writes advance
// the descriptor's own cursor.
type LargeObject interface {
	io.Reader
	io.Writer
	io.Closer
}

// LargeObjects exposes the store's large-object primitives inside one transaction.
type LargeObjects interface {
	Create(ctx context.Context) (uint32, error)
	Open(ctx context.Context, oid uint32, mode OpenMode) (LargeObject, error)
	Unlink(ctx context.Context, oid uint32) error
	// Exists reports whether oid names a large object visible to the transaction.
	Exists(ctx context.Context, oid uint32) (bool, error)
}

// Index is the Metadata Index keyed by file id.
type Index interface {
	Insert(ctx context.Context, entry Entry) error
	Lookup(ctx context.Context, fileID string) (Entry, error)
	Remove(ctx context.Context, fileID string) error
}

// TxOptions configures a transaction.
type TxOptions struct {
	ReadOnly bool
}

// Tx scopes large-object and index operations to a single transaction.
type Tx interface {
	LargeObjects() LargeObjects
	Index() Index
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens transactions against the backing database.
type Store interface {
	Begin(ctx context.Context, opts TxOptions) (Tx, error)
	Ping(ctx context.Context) error
	Close()
}
