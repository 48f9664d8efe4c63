package pg

import (
	"database/sql"
	"errors"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var (
	ErrNotFound  = errors.New("pg: record not found")
	ErrConflict  = errors.New("pg: unique constraint violated")
	ErrReference = errors.New("pg: referenced record missing or still in use")
)

// MapError converts driver errors into package sentinels, wrapping the original.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || sqlscan.NotFound(err) {
		return ErrNotFound
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return errors.Join(ErrConflict, err)
		case pgErrForeignKeyViolation:
			return errors.Join(ErrReference, err)
		}
	}
	return err
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
