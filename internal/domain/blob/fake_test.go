package blob

import (
	"context"
	"errors"
	"io"
)

type fakeObjects struct {
	nextOID    uint32
	data       map[uint32][]byte
	writes     []int
	failWrite  int // 1-based write call that fails, 0 disables
	failRead   int // 1-based read call that fails, 0 disables
	createErr  error
	reads      int
	closed     int
	unlinked   []uint32
	shortWrite bool
	onRead     func(call int)
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{nextOID: 100, data: map[uint32][]byte{}}
}

func (f *fakeObjects) Create(context.Context) (uint32, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextOID++
	f.data[f.nextOID] = nil
	return f.nextOID, nil
}

func (f *fakeObjects) Open(_ context.Context, oid uint32, _ OpenMode) (LargeObject, error) {
	if _, ok := f.data[oid]; !ok {
		return nil, ErrHandleNotFound
	}
	return &fakeObject{owner: f, oid: oid}, nil
}

func (f *fakeObjects) Exists(_ context.Context, oid uint32) (bool, error) {
	_, ok := f.data[oid]
	return ok, nil
}

func (f *fakeObjects) Unlink(_ context.Context, oid uint32) error {
	if _, ok := f.data[oid]; !ok {
		return ErrHandleNotFound
	}
	delete(f.data, oid)
	f.unlinked = append(f.unlinked, oid)
	return nil
}

type fakeObject struct {
	owner  *fakeObjects
	oid    uint32
	cursor int
}

func (o *fakeObject) Write(p []byte) (int, error) {
	o.owner.writes = append(o.owner.writes, len(p))
	if o.owner.failWrite == len(o.owner.writes) {
		return 0, errors.New("connection reset by peer")
	}
	if o.owner.shortWrite {
		p = p[:len(p)/2]
	}
	o.owner.data[o.oid] = append(o.owner.data[o.oid], p...)
	return len(p), nil
}

func (o *fakeObject) Read(p []byte) (int, error) {
	o.owner.reads++
	if o.owner.onRead != nil {
		o.owner.onRead(o.owner.reads)
	}
	if o.owner.failRead == o.owner.reads {
		return 0, errors.New("unexpected EOF from server")
	}
	content := o.owner.data[o.oid]
	n := copy(p, content[o.cursor:])
	o.cursor += n
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (o *fakeObject) Close() error {
	o.owner.closed++
	return nil
}
