package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// CallSQL renders the statement used to invoke a set-returning procedure.
func CallSQL(proc string, nargs int) string {
	params := make([]string, nargs)
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("select * from %s(%s)", proc, strings.Join(params, ", "))
}

// Get runs proc and decodes its single row into dst. A missing row yields ErrNotFound.
func (s *Store) Get(ctx context.Context, dst any, proc string, args ...any) error {
	if err := sqlscan.Get(ctx, s.db, dst, CallSQL(proc, len(args)), args...); err != nil {
		return fmt.Errorf("%s: %w", proc, MapError(err))
	}
	return nil
}

// Select runs proc and decodes every row into the slice pointed to by dst.
func (s *Store) Select(ctx context.Context, dst any, proc string, args ...any) error {
	if err := sqlscan.Select(ctx, s.db, dst, CallSQL(proc, len(args)), args...); err != nil {
		return fmt.Errorf("%s: %w", proc, MapError(err))
	}
	return nil
}

// Scalar runs proc and returns its first column as int64. Insert procedures
// return the new id; update and delete procedures return the affected row count.
func (s *Store) Scalar(ctx context.Context, proc string, args ...any) (int64, error) {
	var v *int64
	err := s.db.QueryRowContext(ctx, CallSQL(proc, len(args)), args...).Scan(&v)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: %w", proc, mapped)
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

// Affected is Scalar reported as a boolean "something changed".
func (s *Store) Affected(ctx context.Context, proc string, args ...any) (bool, error) {
	n, err := s.Scalar(ctx, proc, args...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
