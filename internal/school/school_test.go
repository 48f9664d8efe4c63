package school

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"nutriadmin.org/internal/store/pg"
)

func newRepo(t *testing.T) (*PGRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPGRepository(pg.New(db)), mock
}

func TestGetByIDLoadsMealTypes(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from school_get_by_id($1)")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "agency_id", "name"}).AddRow(int64(4), int64(1), "Escuela Luis Muñoz"))
	mock.ExpectQuery(regexp.QuoteMeta("select * from school_get_meal_types($1)")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Desayuno").
			AddRow(int64(2), "Almuerzo"))

	s, err := repo.GetByID(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(s.MealTypes) != 2 || s.MealTypeIDs[1] != 2 {
		t.Fatalf("unexpected meal types: %+v %+v", s.MealTypes, s.MealTypeIDs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertLinksMealTypesOnce(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from school_insert(")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(30)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from school_meal_type_insert($1, $2)")).
		WithArgs(int64(30), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from school_meal_type_insert($1, $2)")).
		WithArgs(int64(30), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	id, err := repo.Insert(context.Background(), School{AgencyID: 1, Name: " Escuela ", MealTypeIDs: []int64{1, 3, 1}})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 30 {
		t.Fatalf("expected id 30, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertRequiresAgency(t *testing.T) {
	repo, _ := newRepo(t)
	if _, err := repo.Insert(context.Background(), School{Name: "Sin agencia"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateMissingSchool(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from school_update(")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(0)))

	ok, err := repo.Update(context.Background(), School{ID: 9, AgencyID: 1, Name: "X"})
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
