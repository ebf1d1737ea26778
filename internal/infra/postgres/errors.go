package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"blobvault/internal/domain/blob"
)

const (
	sqlStateUniqueViolation = "23505"
	sqlStateUndefinedObject = "42704"
)

// translateError maps Postgres SQLSTATEs onto domain sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlStateUndefinedObject:
		return fmt.Errorf("%w: %s", blob.ErrHandleNotFound, pgErr.Message)
	case sqlStateUniqueViolation:
		return fmt.Errorf("%w: %s", blob.ErrDuplicateKey, pgErr.Message)
	default:
		return err
	}
}
