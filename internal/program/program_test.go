package program

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"nutriadmin.org/internal/store/pg"
)

func TestAssignToUserReplacesCoverage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewPGRepository(pg.New(db))

	mock.ExpectQuery(regexp.QuoteMeta("select * from user_program_delete_by_user($1)")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from user_program_insert($1, $2)")).
		WithArgs("u-1", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from user_program_insert($1, $2)")).
		WithArgs("u-1", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	if err := repo.AssignToUser(context.Background(), "u-1", []int64{4, 7, 4, 0}); err != nil {
		t.Fatalf("AssignToUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemoryCoverageAndAgencyLinks(t *testing.T) {
	m := NewMemory("Desayuno escolar", "Verano", "Cuidado infantil")
	m.AgencyLinks = func(agencyID int64) []int64 {
		if agencyID == 5 {
			return []int64{1, 3}
		}
		return nil
	}
	ctx := context.Background()

	if err := m.AssignToUser(ctx, "monitor-1", []int64{2, 2, 3}); err != nil {
		t.Fatalf("AssignToUser: %v", err)
	}
	covered, _ := m.ByUser(ctx, "monitor-1")
	if len(covered) != 2 || covered[0].Name != "Verano" {
		t.Fatalf("unexpected coverage: %+v", covered)
	}
	byAgency, _ := m.ByAgency(ctx, 5)
	if len(byAgency) != 2 || byAgency[1].Name != "Cuidado infantil" {
		t.Fatalf("unexpected agency programs: %+v", byAgency)
	}
	none, _ := m.ByAgency(ctx, 6)
	if len(none) != 0 {
		t.Fatalf("expected no programs, got %+v", none)
	}
}
