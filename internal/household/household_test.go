package household

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

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

func TestAnnualIncome(t *testing.T) {
	h := Household{Members: []Member{
		{Incomes: []Income{
			{Amount: decimal.RequireFromString("250.50"), Frequency: Weekly},
			{Amount: decimal.RequireFromString("100"), Frequency: Monthly},
		}},
		{Incomes: []Income{
			{Amount: decimal.RequireFromString("1000"), Frequency: Biweekly},
			{Amount: decimal.RequireFromString("3000"), Frequency: Annually},
			{Amount: decimal.RequireFromString("99"), Frequency: "daily"},
		}},
	}}

	// 250.50*52 + 100*12 + 1000*26 + 3000
	want := decimal.RequireFromString("43226")
	if got := h.AnnualIncome(); !got.Equal(want) {
		t.Fatalf("AnnualIncome = %s, want %s", got, want)
	}
	if !(Household{}).AnnualIncome().IsZero() {
		t.Fatalf("empty household should have zero income")
	}
}

func TestGetByIDGroupsIncomesByMember(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from household_get_by_id($1)")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "agency_id", "name"}).AddRow(int64(7), int64(2), "Familia Rivera"))
	mock.ExpectQuery(regexp.QuoteMeta("select * from household_get_members($1)")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "household_id", "first_name", "last_name", "is_head"}).
			AddRow(int64(1), int64(7), "Ana", "Rivera", true).
			AddRow(int64(2), int64(7), "Luis", "Rivera", false))
	mock.ExpectQuery(regexp.QuoteMeta("select * from household_get_member_incomes($1)")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "source", "amount", "frequency"}).
			AddRow(int64(10), int64(1), "Empleo", "1200.00", Monthly))

	h, err := repo.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(h.Members) != 2 || len(h.Members[0].Incomes) != 1 || len(h.Members[1].Incomes) != 0 {
		t.Fatalf("unexpected members: %+v", h.Members)
	}
	if got := h.AnnualIncome(); !got.Equal(decimal.NewFromInt(14400)) {
		t.Fatalf("AnnualIncome = %s", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertCascadesMembersAndIncomes(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from household_insert(")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from household_member_insert(")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(50)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from household_member_income_insert($1, $2, $3, $4)")).
		WithArgs(int64(50), "Pensión", sqlmock.AnyArg(), Monthly).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(500)))

	id, err := repo.Insert(context.Background(), Household{
		AgencyID: 2,
		Name:     "Familia Ortiz",
		Members: []Member{{
			FirstName: "Carmen",
			LastName:  "Ortiz",
			IsHead:    true,
			Incomes:   []Income{{Source: "Pensión", Amount: decimal.NewFromInt(800), Frequency: " Monthly "}},
		}},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 5 {
		t.Fatalf("expected id 5, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIncomeValidation(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	cases := []Income{
		{MemberID: 1, Source: "x", Amount: decimal.NewFromInt(-1), Frequency: Weekly},
		{MemberID: 1, Source: "x", Amount: decimal.NewFromInt(1), Frequency: "hourly"},
		{MemberID: 1, Amount: decimal.NewFromInt(1), Frequency: Weekly},
		{Source: "x", Amount: decimal.NewFromInt(1), Frequency: Weekly},
	}
	for i, c := range cases {
		if _, err := repo.InsertIncome(ctx, c); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}
