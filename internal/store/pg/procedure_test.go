package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

type regionRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestCallSQL(t *testing.T) {
	if got := CallSQL("region_get_all", 0); got != "select * from region_get_all()" {
		t.Fatalf("unexpected sql: %s", got)
	}
	if got := CallSQL("agency_update_status", 3); got != "select * from agency_update_status($1, $2, $3)" {
		t.Fatalf("unexpected sql: %s", got)
	}
}

func TestGetDecodesRow(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from region_get_by_id($1)")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(4), "Norte"))

	var r regionRow
	if err := s.Get(context.Background(), &r, "region_get_by_id", int64(4)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.ID != 4 || r.Name != "Norte" {
		t.Fatalf("unexpected row: %+v", r)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetMissingRowIsNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from region_get_by_id($1)")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	var r regionRow
	err := s.Get(context.Background(), &r, "region_get_by_id", int64(9))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScalarAndAffected(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from program_insert($1, $2)")).
		WithArgs("Desayuno", "").
		WillReturnRows(sqlmock.NewRows([]string{"program_insert"}).AddRow(int64(12)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from program_delete($1)")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"program_delete"}).AddRow(int64(0)))

	id, err := s.Scalar(context.Background(), "program_insert", "Desayuno", "")
	if err != nil || id != 12 {
		t.Fatalf("Scalar = %d, %v", id, err)
	}
	ok, err := s.Affected(context.Background(), "program_delete", int64(99))
	if err != nil || ok {
		t.Fatalf("Affected = %v, %v", ok, err)
	}
}

func TestMapErrorConstraintCodes(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	if err := MapError(unique); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	fk := &pgconn.PgError{Code: "23503", Message: "violates foreign key"}
	if err := MapError(fk); !errors.Is(err, ErrReference) {
		t.Fatalf("expected ErrReference, got %v", err)
	}
	other := errors.New("boom")
	if err := MapError(other); err != other {
		t.Fatalf("expected passthrough, got %v", err)
	}
}

func TestScalarWrapsDriverError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_insert($1)")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.Scalar(context.Background(), "agency_insert", "Acme")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
