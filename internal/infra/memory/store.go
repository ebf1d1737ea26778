// Package memory is an in-process blob.Store. Transactions are serialized
// and buffered, so a rolled-back transaction leaves no trace. It backs the
// "memory" store driver and the transfer tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"blobvault/internal/domain/blob"
)

var (
	errReadOnly = errors.New("cannot execute in a read-only transaction")
	errTxDone   = errors.New("tx is closed")
)

// Store keeps committed large objects and index rows in maps.
type Store struct {
	sem chan struct{}

	mu      sync.Mutex
	nextOID uint32
	objects map[uint32][]byte
	entries map[string]blob.Entry

	faults faults
	open   int // descriptors opened and not yet closed
	now    func() time.Time
}

type faults struct {
	writeAt   int
	writeErr  error
	readAt    int
	readErr   error
	commitErr error
	ioDelay   time.Duration
	writes    int
	reads     int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		sem:     make(chan struct{}, 1),
		nextOID: 16384,
		objects: make(map[uint32][]byte),
		entries: make(map[string]blob.Entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FailWriteAt makes the n-th large-object write call (1-based, counted from
// now across transactions) fail with err.
func (s *Store) FailWriteAt(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults.writes = 0
	s.faults.writeAt, s.faults.writeErr = n, err
}

// FailReadAt makes the n-th large-object read call fail with err.
func (s *Store) FailReadAt(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults.reads = 0
	s.faults.readAt, s.faults.readErr = n, err
}

// FailCommit makes every commit fail with err until cleared with nil.
func (s *Store) FailCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults.commitErr = err
}

// DelayIO makes every large-object read and write call sleep for d first.
// Zero disables the delay.
func (s *Store) DelayIO(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults.ioDelay = d
}

// OpenDescriptors returns the number of large-object descriptors that were
// opened and not closed.
func (s *Store) OpenDescriptors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// DropObject unlinks a committed large object outside any transaction,
// leaving index rows untouched.
func (s *Store) DropObject(oid uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, oid)
}

// ObjectCount returns the number of committed large objects.
func (s *Store) ObjectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// EntryCount returns the number of committed index rows.
func (s *Store) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Begin waits for exclusive access, then opens a buffered transaction.
func (s *Store) Begin(ctx context.Context, opts blob.TxOptions) (blob.Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &tx{
		store:    s,
		readOnly: opts.ReadOnly,
		objects:  make(map[uint32][]byte),
		unlinked: make(map[uint32]bool),
		entries:  make(map[string]*blob.Entry),
	}, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) allocateOID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOID++
	return s.nextOID
}

func (s *Store) countWrite() error {
	s.sleepIO()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults.writes++
	if s.faults.writeAt > 0 && s.faults.writes == s.faults.writeAt {
		return s.faults.writeErr
	}
	return nil
}

func (s *Store) countRead() error {
	s.sleepIO()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults.reads++
	if s.faults.readAt > 0 && s.faults.reads == s.faults.readAt {
		return s.faults.readErr
	}
	return nil
}

func (s *Store) sleepIO() {
	s.mu.Lock()
	delay := s.faults.ioDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
}

func (s *Store) trackOpen(delta int) {
	s.mu.Lock()
	s.open += delta
	s.mu.Unlock()
}

var _ blob.Store = (*Store)(nil)

// tx buffers every mutation until Commit.
type tx struct {
	store    *Store
	readOnly bool
	done     bool

	objects  map[uint32][]byte
	unlinked map[uint32]bool
	entries  map[string]*blob.Entry // nil value marks a removed row
}

func (t *tx) LargeObjects() blob.LargeObjects { return (*txObjects)(t) }

func (t *tx) Index() blob.Index { return (*txIndex)(t) }

func (t *tx) Commit(context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	defer func() { <-t.store.sem }()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faults.commitErr != nil {
		return s.faults.commitErr
	}
	for oid := range t.unlinked {
		delete(s.objects, oid)
	}
	for oid, content := range t.objects {
		s.objects[oid] = content
	}
	for fileID, entry := range t.entries {
		if entry == nil {
			delete(s.entries, fileID)
			continue
		}
		s.entries[fileID] = *entry
	}
	return nil
}

func (t *tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	<-t.store.sem
	return nil
}

func (t *tx) check(write bool) error {
	if t.done {
		return errTxDone
	}
	if write && t.readOnly {
		return errReadOnly
	}
	return nil
}

// object returns the content visible to this transaction.
func (t *tx) object(oid uint32) ([]byte, bool) {
	if t.unlinked[oid] {
		return nil, false
	}
	if content, ok := t.objects[oid]; ok {
		return content, true
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	content, ok := t.store.objects[oid]
	return content, ok
}

// entry returns the row visible to this transaction.
func (t *tx) entry(fileID string) (blob.Entry, bool) {
	if staged, ok := t.entries[fileID]; ok {
		if staged == nil {
			return blob.Entry{}, false
		}
		return *staged, true
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	entry, ok := t.store.entries[fileID]
	return entry, ok
}

type txObjects tx

func (o *txObjects) Create(context.Context) (uint32, error) {
	t := (*tx)(o)
	if err := t.check(true); err != nil {
		return 0, err
	}
	oid := t.store.allocateOID()
	t.objects[oid] = []byte{}
	return oid, nil
}

func (o *txObjects) Open(_ context.Context, oid uint32, mode blob.OpenMode) (blob.LargeObject, error) {
	t := (*tx)(o)
	if err := t.check(mode == blob.ModeWrite); err != nil {
		return nil, err
	}
	content, ok := t.object(oid)
	if !ok {
		return nil, fmt.Errorf("%w: large object %d does not exist", blob.ErrHandleNotFound, oid)
	}
	if mode == blob.ModeWrite {
		if _, staged := t.objects[oid]; !staged {
			t.objects[oid] = append([]byte(nil), content...)
		}
	}
	t.store.trackOpen(1)
	return &descriptor{tx: t, oid: oid, mode: mode}, nil
}

func (o *txObjects) Unlink(_ context.Context, oid uint32) error {
	t := (*tx)(o)
	if err := t.check(true); err != nil {
		return err
	}
	if _, ok := t.object(oid); !ok {
		return fmt.Errorf("%w: large object %d does not exist", blob.ErrHandleNotFound, oid)
	}
	delete(t.objects, oid)
	t.unlinked[oid] = true
	return nil
}

func (o *txObjects) Exists(_ context.Context, oid uint32) (bool, error) {
	t := (*tx)(o)
	if err := t.check(false); err != nil {
		return false, err
	}
	_, ok := t.object(oid)
	return ok, nil
}

// descriptor is an open large object with its own cursor.
type descriptor struct {
	tx     *tx
	oid    uint32
	mode   blob.OpenMode
	cursor int
	closed bool
}

func (d *descriptor) Write(p []byte) (int, error) {
	if d.closed || d.tx.done {
		return 0, errTxDone
	}
	if d.mode != blob.ModeWrite {
		return 0, errors.New("large object descriptor not open for writing")
	}
	if err := d.tx.store.countWrite(); err != nil {
		return 0, err
	}
	content := d.tx.objects[d.oid]
	if end := d.cursor + len(p); end > len(content) {
		content = append(content, make([]byte, end-len(content))...)
	}
	copy(content[d.cursor:], p)
	d.tx.objects[d.oid] = content
	d.cursor += len(p)
	return len(p), nil
}

func (d *descriptor) Read(p []byte) (int, error) {
	if d.closed || d.tx.done {
		return 0, errTxDone
	}
	if err := d.tx.store.countRead(); err != nil {
		return 0, err
	}
	content, ok := d.tx.object(d.oid)
	if !ok {
		return 0, fmt.Errorf("%w: large object %d does not exist", blob.ErrHandleNotFound, d.oid)
	}
	var n int
	if d.cursor < len(content) {
		n = copy(p, content[d.cursor:])
	}
	d.cursor += n
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (d *descriptor) Close() error {
	if d.closed {
		return errors.New("large object descriptor already closed")
	}
	d.closed = true
	d.tx.store.trackOpen(-1)
	return nil
}

type txIndex tx

func (i *txIndex) Insert(_ context.Context, entry blob.Entry) error {
	t := (*tx)(i)
	if err := t.check(true); err != nil {
		return err
	}
	if _, exists := t.entry(entry.FileID); exists {
		return fmt.Errorf("insert index entry %s: %w", entry.FileID, blob.ErrDuplicateKey)
	}
	if t.oidReferenced(entry.BlobOID) {
		return fmt.Errorf("insert index entry %s: large object %d already referenced: %w", entry.FileID, entry.BlobOID, blob.ErrDuplicateKey)
	}
	entry.CreatedAt = t.store.now()
	t.entries[entry.FileID] = &entry
	return nil
}

func (i *txIndex) Lookup(_ context.Context, fileID string) (blob.Entry, error) {
	t := (*tx)(i)
	if err := t.check(false); err != nil {
		return blob.Entry{}, err
	}
	entry, ok := t.entry(fileID)
	if !ok {
		return blob.Entry{}, blob.ErrEntryNotFound
	}
	return entry, nil
}

func (i *txIndex) Remove(_ context.Context, fileID string) error {
	t := (*tx)(i)
	if err := t.check(true); err != nil {
		return err
	}
	if _, ok := t.entry(fileID); !ok {
		return blob.ErrEntryNotFound
	}
	t.entries[fileID] = nil
	return nil
}

func (t *tx) oidReferenced(oid uint32) bool {
	for _, staged := range t.entries {
		if staged != nil && staged.BlobOID == oid {
			return true
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for fileID, entry := range t.store.entries {
		if staged, ok := t.entries[fileID]; ok && staged == nil {
			continue
		}
		if entry.BlobOID == oid {
			return true
		}
	}
	return false
}
