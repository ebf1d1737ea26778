package blob

import (
	"context"

	errs "blobvault/internal/shared/errors"
)

// RunInTx begins a transaction, runs fn inside it and commits when fn
// returns nil. Any error from fn, or a panic, rolls the transaction back.
func RunInTx(ctx context.Context, store Store, opts TxOptions, fn func(Tx) error) (err error) {
	tx, err := store.Begin(ctx, opts)
	if err != nil {
		return errs.NewStoreError(err, "begin tx")
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// Rollback must still reach the server after ctx expiry.
		_ = tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // best-effort on defer
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.NewStoreError(err, "commit tx")
	}
	committed = true
	return nil
}
