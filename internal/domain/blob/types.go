// Package blob defines the large-object blob model, the store ports it is
// persisted through, and the chunked transfer between payloads and handles.
package blob

import (
	"errors"
	"time"
)

// DefaultChunkSize bounds the bytes resident per write call and per read call.
const DefaultChunkSize = 16384

var (
	// ErrEntryNotFound reports that no metadata row matches a file id.
	ErrEntryNotFound = errors.New("metadata entry not found")
	// ErrHandleNotFound reports that the store has no large object for a handle.
	ErrHandleNotFound = errors.New("large object not found")
	// ErrDuplicateKey reports an insert of a file id that already exists.
	ErrDuplicateKey = errors.New("duplicate file id")
)

// Handle identifies one large object in the store.
type Handle struct {
	OID  uint32 `json:"handle"`
	Size int64  `json:"size"`
}

// Entry is one Metadata Index row.
type Entry struct {
	FileID    string    `json:"fileId"`
	FileName  string    `json:"fileName"`
	FileSize  int64     `json:"fileSize"`
	BlobOID   uint32    `json:"handle"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Handle returns the blob handle referenced by the entry, sized by the
// declared file size.
func (e Entry) Handle() Handle {
	return Handle{OID: e.BlobOID, Size: e.FileSize}
}
