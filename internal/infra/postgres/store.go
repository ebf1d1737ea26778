// Package postgres implements the blob store on Postgres large objects with
// the Metadata Index in an ordinary table.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"blobvault/internal/domain/blob"
)

// pool abstracts the subset of pgxpool.Pool used by the store for easier testing.
type pool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Store opens pgx transactions that carry both large-object and index access.
type Store struct {
	pool  pool
	table string
}

// New builds a Store over pool using the given (unquoted) table name.
func New(pool pool, table string) (*Store, error) {
	if pool == nil {
		return nil, errors.New("postgres store requires pool")
	}
	quoted, err := QuoteTable(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, table: quoted}, nil
}

// Migrate creates the Metadata Index table.
func (s *Store) Migrate(ctx context.Context) error {
	return EnsureSchema(ctx, s.pool, s.table)
}

// Begin starts a transaction. Read-only transactions map to READ ONLY access mode.
func (s *Store) Begin(ctx context.Context, opts blob.TxOptions) (blob.Tx, error) {
	txOpts := pgx.TxOptions{}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, index: NewIndex(tx, s.table)}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Tx is one pgx transaction.
type Tx struct {
	tx    pgx.Tx
	index *Index
}

func (t *Tx) LargeObjects() blob.LargeObjects {
	return largeObjects{tx: t.tx}
}

func (t *Tx) Index() blob.Index {
	return t.index
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction; after Commit it is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

var _ blob.Store = (*Store)(nil)
