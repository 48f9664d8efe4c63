package agency

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/program"
	"nutriadmin.org/internal/store/pg"
)

func newMock(t *testing.T) (*pg.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pg.New(db), mock
}

func TestGetByIDLoadsProgramsAndUsers(t *testing.T) {
	store, mock := newMock(t)
	repo := NewPGRepository(store)

	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_get_by_id($1)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status_id", "status_name"}).
			AddRow(int64(3), "Comedor Esperanza", int64(1), "Pending"))
	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_get_programs($1)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(2), "Verano"))
	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_get_users($1)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "agency_id", "is_owner"}).
			AddRow(int64(9), "u-1", int64(3), true))

	a, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Pending", a.StatusName)
	require.Len(t, a.Programs, 1)
	assert.Equal(t, "Verano", a.Programs[0].Name)
	require.Len(t, a.Users, 1)
	assert.True(t, a.Users[0].IsOwner)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_get_by_id($1)")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewPGRepository(store).GetByID(context.Background(), 8)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestGetAllAttachesProgramsPerAgency(t *testing.T) {
	store, mock := newMock(t)
	repo := NewPGRepository(store)
	f := Filter{Query: paging.Query{Take: 2}, RegionID: 4, UserID: "u-1"}

	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_get_all($1, $2, $3, $4, $5, $6, $7, $8)")).
		WithArgs(2, 0, "", int64(4), int64(0), int64(0), "u-1", false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Uno").
			AddRow(int64(2), "Dos"))
	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_count($1, $2, $3, $4, $5)")).
		WithArgs("", int64(4), int64(0), int64(0), "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"agency_count"}).AddRow(int64(5)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_get_all_programs($1, $2, $3, $4, $5, $6, $7, $8)")).
		WithArgs(2, 0, "", int64(4), int64(0), int64(0), "u-1", false).
		WillReturnRows(sqlmock.NewRows([]string{"agency_id", "id", "name"}).
			AddRow(int64(1), int64(10), "Desayuno").
			AddRow(int64(1), int64(11), "Verano"))

	page, err := repo.GetAll(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Count)
	require.Len(t, page.Data, 2)
	assert.Len(t, page.Data[0].Programs, 2)
	assert.NotNil(t, page.Data[1].Programs)
	assert.Empty(t, page.Data[1].Programs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReplacesPrograms(t *testing.T) {
	store, mock := newMock(t)
	repo := NewPGRepository(store)

	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_update(")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_program_delete_by_agency($1)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_program_insert($1, $2)")).
		WithArgs(int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(40)))

	ok, err := repo.Update(context.Background(), Agency{ID: 3, Name: "Comedor", ProgramIDs: []int64{7, 7}})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRejectsBadInput(t *testing.T) {
	store, mock := newMock(t)
	repo := NewPGRepository(store)

	_, err := repo.Insert(context.Background(), Agency{Name: "  "})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = repo.Insert(context.Background(), Agency{Name: "Ok", Email: "not-an-email"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentByUserNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_user_get_by_user($1)")).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "agency_id"}))

	_, err := NewPGAssignments(store).ByUser(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFilesDeriveURL(t *testing.T) {
	store, mock := newMock(t)
	files := NewPGFiles(store, "https://cdn.example.org/files/")

	mock.ExpectQuery(regexp.QuoteMeta("select * from agency_file_get_by_id($1)")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "agency_id", "name", "file_name"}).
			AddRow(int64(5), int64(12), "Permiso", "permiso sanitario.pdf"))

	f, err := files.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/files/12/permiso%20sanitario.pdf", f.URL)
}

func TestMemoryFiltersAndLinks(t *testing.T) {
	ctx := context.Background()
	programs := program.NewMemory("Desayuno", "Verano")
	assignments := NewMemoryAssignments()
	agencies := NewMemory()
	agencies.Programs = programs
	agencies.Assignments = assignments
	programs.AgencyLinks = agencies.ProgramIDs

	first, err := agencies.Insert(ctx, Agency{Name: "Norte", RegionID: 1, ProgramIDs: []int64{2}})
	require.NoError(t, err)
	_, err = agencies.Insert(ctx, Agency{Name: "Sur", RegionID: 2})
	require.NoError(t, err)
	_, err = assignments.Insert(ctx, UserAssignment{UserID: "u-1", AgencyID: first, IsOwner: true})
	require.NoError(t, err)

	page, err := agencies.GetAll(ctx, Filter{UserID: "u-1"})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Count)
	assert.Equal(t, "Norte", page.Data[0].Name)
	require.Len(t, page.Data[0].Programs, 1)
	assert.Equal(t, "Verano", page.Data[0].Programs[0].Name)

	page, err = agencies.GetAll(ctx, Filter{RegionID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)

	a, err := agencies.GetByID(ctx, first)
	require.NoError(t, err)
	require.Len(t, a.Users, 1)
	assert.Equal(t, "u-1", a.Users[0].UserID)

	ok, err := agencies.UpdateStatus(ctx, first, 3, " falta permiso ")
	require.NoError(t, err)
	assert.True(t, ok)
	a, _ = agencies.GetByID(ctx, first)
	assert.Equal(t, "falta permiso", a.RejectionJustification)

	removed, err := assignments.DeleteByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = assignments.ByUser(ctx, "u-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}
