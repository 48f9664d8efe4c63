package geo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"nutriadmin.org/internal/paging"
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

func TestCitiesFilteredByRegion(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from city_get_all($1, $2, $3, $4, $5)")).
		WithArgs(10, 0, "san", int64(2), false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "region_id", "region_name"}).
			AddRow(int64(11), "San Juan", int64(2), "Metro").
			AddRow(int64(12), "San Lorenzo", int64(2), "Metro"))
	mock.ExpectQuery(regexp.QuoteMeta("select * from city_count($1, $2)")).
		WithArgs("san", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"city_count"}).AddRow(int64(2)))

	page, err := repo.Cities(context.Background(), paging.Query{Name: "san"}, 2)
	if err != nil {
		t.Fatalf("Cities: %v", err)
	}
	if page.Count != 2 || len(page.Data) != 2 || page.Data[1].Name != "San Lorenzo" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegionByIDNotFound(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from region_get_by_id($1)")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	if _, err := repo.RegionByID(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
