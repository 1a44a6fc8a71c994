package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/domain/shared"
)

// Postgres SQLSTATE codes that matter to the stock flows
const (
	pgCodeUniqueViolation   = "23505"
	pgCodeSerializationFail = "40001"
	pgCodeDeadlockDetected  = "40P01"
	pgCodeLockNotAvailable  = "55P03"
	pgCodeQueryCanceled     = "57014"
)

// translateDBError maps driver-level failures onto domain error kinds so the
// application layer can apply its retry policy without knowing the driver.
// Lock timeouts and serialization failures become CONFLICT, which is the only
// retryable kind.
func translateDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeLockNotAvailable, pgCodeQueryCanceled:
			return shared.ErrLockTimeout
		case pgCodeSerializationFail, pgCodeDeadlockDetected:
			return shared.ErrConcurrencyConflict
		case pgCodeUniqueViolation:
			return shared.ErrAlreadyExists
		}
	}

	return err
}
