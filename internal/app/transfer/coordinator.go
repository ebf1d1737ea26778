// Package transfer coordinates ingest, retrieve and purge so that a blob and
// its Metadata Index row are created and destroyed together.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"blobvault/internal/domain/blob"
	errs "blobvault/internal/shared/errors"
	"blobvault/internal/shared/logging"
	"blobvault/internal/shared/utils/id"
)

const (
	spanIngest   = "blobvault.transfer.ingest"
	spanRetrieve = "blobvault.transfer.retrieve"
	spanPurge    = "blobvault.transfer.purge"
	spanDescribe = "blobvault.transfer.describe"
)

// NoFileMessage is returned when Ingest is called without a payload.
const NoFileMessage = "No file uploaded"

// Observer receives one record per finished operation. kind is empty on
// success, otherwise one of the ErrorKind values.
type Observer interface {
	RecordIngest(duration time.Duration, sizeBytes int64, kind string)
	RecordRetrieve(duration time.Duration, sizeBytes int64, kind string)
	RecordPurge(duration time.Duration, kind string)
}

// Ingested is the result of a successful Ingest.
type Ingested struct {
	FileID string      `json:"fileId"`
	Handle blob.Handle `json:"-"`
}

// File is the result of a successful Retrieve.
type File struct {
	FileName string
	Data     []byte
}

// Coordinator runs the three lifecycle operations against a blob.Store.
type Coordinator struct {
	store    blob.Store
	writer   *blob.Writer
	reader   *blob.Reader
	newID    func() string
	timeout  time.Duration
	observer Observer
	tracer   trace.Tracer
	logger   logging.Logger
	latency  logging.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithChunkSize overrides the transfer chunk size.
func WithChunkSize(size int) Option {
	return func(c *Coordinator) {
		c.writer = blob.NewWriter(size)
		c.reader = blob.NewReader(size)
	}
}

// WithOperationTimeout bounds every operation; zero leaves the caller's
// context untouched.
func WithOperationTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(observer Observer) Option {
	return func(c *Coordinator) {
		c.observer = observer
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithLogger overrides the component and latency loggers.
func WithLogger(logger, latency logging.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logging.OrNop(logger)
		c.latency = logging.OrNop(latency)
	}
}

// WithIDGenerator overrides file id generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// New builds a Coordinator over store.
func New(store blob.Store, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("transfer coordinator requires a store")
	}
	c := &Coordinator{
		store:   store,
		writer:  blob.NewWriter(blob.DefaultChunkSize),
		reader:  blob.NewReader(blob.DefaultChunkSize),
		newID:   id.NewFileID,
		tracer:  otel.Tracer("blobvault/transfer"),
		logger:  logging.NewComponentLogger("TransferCoordinator"),
		latency: logging.NewLatencyLogger("TransferCoordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ingest writes payload into a new large object and records it under a new
// file id, in one transaction. A nil payload is rejected as a bad request;
// an empty one is stored. fileSize is stored as declared.
func (c *Coordinator) Ingest(ctx context.Context, fileName string, fileSize int64, payload []byte) (result Ingested, err error) {
	if payload == nil {
		return Ingested{}, errs.NewBadRequestError(nil, NoFileMessage)
	}

	fileID := c.newID()
	ctx, finish := c.begin(ctx, spanIngest, attribute.String("blobvault.file_id", fileID))
	defer func() {
		finish(err, attribute.Int64("blobvault.handle", int64(result.Handle.OID)))
		if c.observer != nil {
			c.observer.RecordIngest(c.elapsed(ctx), int64(len(payload)), ErrorKind(err))
		}
	}()

	err = blob.RunInTx(ctx, c.store, blob.TxOptions{}, func(tx blob.Tx) error {
		handle, err := c.writer.Write(ctx, tx.LargeObjects(), payload)
		if err != nil {
			return err
		}
		entry := blob.Entry{
			FileID:   fileID,
			FileName: fileName,
			FileSize: fileSize,
			BlobOID:  handle.OID,
		}
		if err := tx.Index().Insert(ctx, entry); err != nil {
			return classify(err, "insert index entry")
		}
		result = Ingested{FileID: fileID, Handle: handle}
		return nil
	})
	if err != nil {
		logging.FromContext(ctx, c.logger).Error("Ingest %s (%q, %d bytes) failed: %v", fileID, fileName, len(payload), err)
		return Ingested{}, err
	}
	if fileSize != int64(len(payload)) {
		logging.FromContext(ctx, c.logger).Warn("Ingest %s: declared size %d differs from payload length %d", fileID, fileSize, len(payload))
	}
	logging.FromContext(ctx, c.latency).Info("Upload file_id=%s handle=%d bytes=%d took %s", fileID, result.Handle.OID, len(payload), c.elapsed(ctx))
	return result, nil
}

// Retrieve returns the file name and full content for fileID. The lookup
// and the read share one read-only transaction.
func (c *Coordinator) Retrieve(ctx context.Context, fileID string) (file File, err error) {
	ctx, finish := c.begin(ctx, spanRetrieve, attribute.String("blobvault.file_id", fileID))
	defer func() {
		finish(err, attribute.Int("blobvault.size_bytes", len(file.Data)))
		if c.observer != nil {
			c.observer.RecordRetrieve(c.elapsed(ctx), int64(len(file.Data)), ErrorKind(err))
		}
	}()

	err = blob.RunInTx(ctx, c.store, blob.TxOptions{ReadOnly: true}, func(tx blob.Tx) error {
		entry, err := tx.Index().Lookup(ctx, fileID)
		if err != nil {
			return classify(err, "lookup index entry")
		}
		data, err := c.reader.Read(ctx, tx.LargeObjects(), entry.Handle())
		if err != nil {
			return classify(err, "read large object")
		}
		file = File{FileName: entry.FileName, Data: data}
		return nil
	})
	if err != nil {
		c.logFailure(ctx, "Retrieve", fileID, err)
		return File{}, err
	}
	logging.FromContext(ctx, c.latency).Info("Download file_id=%s bytes=%d took %s", fileID, len(file.Data), c.elapsed(ctx))
	return file, nil
}

// Purge destroys the large object and removes the index row for fileID in
// one transaction. When the large object is already gone the row is still
// removed and the not-found condition is reported after commit, so the file
// id never stays listed without content.
func (c *Coordinator) Purge(ctx context.Context, fileID string) (err error) {
	ctx, finish := c.begin(ctx, spanPurge, attribute.String("blobvault.file_id", fileID))
	defer func() {
		finish(err)
		if c.observer != nil {
			c.observer.RecordPurge(c.elapsed(ctx), ErrorKind(err))
		}
	}()

	var (
		dangling    bool
		danglingOID uint32
	)
	err = blob.RunInTx(ctx, c.store, blob.TxOptions{}, func(tx blob.Tx) error {
		entry, err := tx.Index().Lookup(ctx, fileID)
		if err != nil {
			return classify(err, "lookup index entry")
		}
		exists, err := tx.LargeObjects().Exists(ctx, entry.BlobOID)
		if err != nil {
			return classify(err, fmt.Sprintf("check large object %d", entry.BlobOID))
		}
		if exists {
			if err := tx.LargeObjects().Unlink(ctx, entry.BlobOID); err != nil {
				return classify(err, fmt.Sprintf("unlink large object %d", entry.BlobOID))
			}
		} else {
			dangling, danglingOID = true, entry.BlobOID
		}
		if err := tx.Index().Remove(ctx, fileID); err != nil {
			return classify(err, "remove index entry")
		}
		return nil
	})
	if err == nil && dangling {
		logging.FromContext(ctx, c.logger).Warn("Purge %s: large object %d was already gone, removed index entry", fileID, danglingOID)
		err = errs.NewNotFoundError(fmt.Errorf("%w: large object %d", blob.ErrHandleNotFound, danglingOID))
	}
	if err != nil {
		c.logFailure(ctx, "Purge", fileID, err)
		return err
	}
	logging.FromContext(ctx, c.latency).Info("Delete file_id=%s took %s", fileID, c.elapsed(ctx))
	return nil
}

// Describe returns the Metadata Index entry for fileID without reading the blob.
func (c *Coordinator) Describe(ctx context.Context, fileID string) (entry blob.Entry, err error) {
	ctx, finish := c.begin(ctx, spanDescribe, attribute.String("blobvault.file_id", fileID))
	defer func() { finish(err) }()

	err = blob.RunInTx(ctx, c.store, blob.TxOptions{ReadOnly: true}, func(tx blob.Tx) error {
		var lookupErr error
		entry, lookupErr = tx.Index().Lookup(ctx, fileID)
		return classify(lookupErr, "lookup index entry")
	})
	if err != nil {
		c.logFailure(ctx, "Describe", fileID, err)
		return blob.Entry{}, err
	}
	return entry, nil
}

// Ping reports whether the store is reachable.
func (c *Coordinator) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return errs.NewStoreError(err, "ping store")
	}
	return nil
}

type startKey struct{}

// begin applies the operation deadline and opens a span. The returned
// finish func records err on the span and ends it.
func (c *Coordinator) begin(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error, ...attribute.KeyValue)) {
	ctx = context.WithValue(ctx, startKey{}, time.Now())
	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	ctx, span := c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error, extra ...attribute.KeyValue) {
		defer cancel()
		span.SetAttributes(extra...)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("blobvault.error_kind", ErrorKind(err)))
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (c *Coordinator) elapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}

func (c *Coordinator) logFailure(ctx context.Context, op, fileID string, err error) {
	logger := logging.FromContext(ctx, c.logger)
	if errs.IsNotFound(err) {
		logger.Info("%s %s: not found", op, fileID)
		return
	}
	logger.Error("%s %s failed: %v", op, fileID, err)
}

// classify turns store and domain errors into the error taxonomy. Errors
// that already carry a kind pass through.
func classify(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case ErrorKind(err) != KindStore:
		return err
	case errors.Is(err, blob.ErrEntryNotFound), errors.Is(err, blob.ErrHandleNotFound):
		return errs.NewNotFoundError(err)
	case errs.IsStore(err):
		return err
	default:
		return errs.NewStoreError(err, op)
	}
}

// Error kinds reported to observers and spans.
const (
	KindBadRequest = "bad_request"
	KindNotFound   = "not_found"
	KindTransfer   = "transfer"
	KindStore      = "store"
)

// ErrorKind returns the taxonomy label for err, or "" for nil. Untyped
// errors count as store failures.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errs.IsBadRequest(err):
		return KindBadRequest
	case errs.IsNotFound(err):
		return KindNotFound
	case errs.IsTransfer(err):
		return KindTransfer
	default:
		return KindStore
	}
}
