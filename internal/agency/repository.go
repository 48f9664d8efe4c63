package agency

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/program"
	"nutriadmin.org/internal/store/pg"
)

const (
	procGetByID          = "agency_get_by_id"
	procGetPrograms      = "agency_get_programs"
	procGetUsers         = "agency_get_users"
	procGetAll           = "agency_get_all"
	procCount            = "agency_count"
	procGetAllPrograms   = "agency_get_all_programs"
	procInsert           = "agency_insert"
	procUpdate           = "agency_update"
	procDelete           = "agency_delete"
	procUpdateStatus     = "agency_update_status"
	procUpdateLogo       = "agency_update_logo"
	procProgramInsert    = "agency_program_insert"
	procProgramDeleteAll = "agency_program_delete_by_agency"
)

var validate = validator.New()

// Validate checks an agency before any write.
func Validate(a Agency) error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrInvalidInput
	}
	if err := validate.Struct(a); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	return nil
}

type PGRepository struct {
	db *pg.Store
}

var _ Repository = (*PGRepository)(nil)

func NewPGRepository(db *pg.Store) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (Agency, error) {
	var a Agency
	if err := r.db.Get(ctx, &a, procGetByID, id); err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return Agency{}, ErrNotFound
		}
		return Agency{}, err
	}
	a.Programs = []program.Program{}
	if err := r.db.Select(ctx, &a.Programs, procGetPrograms, id); err != nil {
		return Agency{}, err
	}
	a.Users = []UserAssignment{}
	if err := r.db.Select(ctx, &a.Users, procGetUsers, id); err != nil {
		return Agency{}, err
	}
	return a, nil
}

// agencyProgram is one row of agency_get_all_programs.
type agencyProgram struct {
	AgencyID int64 `db:"agency_id"`
	program.Program
}

func (r *PGRepository) GetAll(ctx context.Context, f Filter) (paging.Page[Agency], error) {
	f.Query = f.Query.Normalize()
	args := []any{f.Take, f.Skip, f.Name, f.RegionID, f.CityID, f.StatusID, f.UserID, f.Alls}

	agencies := []Agency{}
	if err := r.db.Select(ctx, &agencies, procGetAll, args...); err != nil {
		return paging.Page[Agency]{}, err
	}
	total, err := r.db.Scalar(ctx, procCount, f.Name, f.RegionID, f.CityID, f.StatusID, f.UserID)
	if err != nil {
		return paging.Page[Agency]{}, err
	}
	if len(agencies) == 0 {
		return paging.Page[Agency]{Data: agencies, Count: total}, nil
	}

	var links []agencyProgram
	if err := r.db.Select(ctx, &links, procGetAllPrograms, args...); err != nil {
		return paging.Page[Agency]{}, err
	}
	byAgency := make(map[int64][]program.Program, len(agencies))
	for _, l := range links {
		byAgency[l.AgencyID] = append(byAgency[l.AgencyID], l.Program)
	}
	for i := range agencies {
		agencies[i].Programs = byAgency[agencies[i].ID]
		if agencies[i].Programs == nil {
			agencies[i].Programs = []program.Program{}
		}
	}
	return paging.Page[Agency]{Data: agencies, Count: total}, nil
}

// Insert stores the agency and enrolls it in a.ProgramIDs. A failing program
// link does not undo the agency row.
func (r *PGRepository) Insert(ctx context.Context, a Agency) (int64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	id, err := r.db.Scalar(ctx, procInsert, a.columns()...)
	if err != nil {
		return 0, err
	}
	for _, pid := range dedupe(a.ProgramIDs) {
		if _, err := r.InsertProgram(ctx, id, pid); err != nil {
			return id, err
		}
	}
	return id, nil
}

func (r *PGRepository) Update(ctx context.Context, a Agency) (bool, error) {
	if a.ID <= 0 {
		return false, ErrInvalidInput
	}
	if err := Validate(a); err != nil {
		return false, err
	}
	ok, err := r.db.Affected(ctx, procUpdate, append([]any{a.ID}, a.columns()...)...)
	if err != nil || !ok {
		return ok, err
	}
	if _, err := r.db.Scalar(ctx, procProgramDeleteAll, a.ID); err != nil {
		return true, err
	}
	for _, pid := range dedupe(a.ProgramIDs) {
		if _, err := r.InsertProgram(ctx, a.ID, pid); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.db.Affected(ctx, procDelete, id)
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id, statusID int64, rejectionJustification string) (bool, error) {
	if id <= 0 || statusID <= 0 {
		return false, ErrInvalidInput
	}
	return r.db.Affected(ctx, procUpdateStatus, id, statusID, strings.TrimSpace(rejectionJustification))
}

func (r *PGRepository) UpdateLogo(ctx context.Context, id int64, logoURL string) (bool, error) {
	if id <= 0 {
		return false, ErrInvalidInput
	}
	return r.db.Affected(ctx, procUpdateLogo, id, strings.TrimSpace(logoURL))
}

func (r *PGRepository) InsertProgram(ctx context.Context, agencyID, programID int64) (int64, error) {
	if agencyID <= 0 || programID <= 0 {
		return 0, ErrInvalidInput
	}
	return r.db.Scalar(ctx, procProgramInsert, agencyID, programID)
}

// columns lists the writable fields in procedure parameter order.
func (a Agency) columns() []any {
	return []any{
		strings.TrimSpace(a.Name), a.StatusID, a.TaxID, a.RegistrationNumber,
		a.Address, a.CityID, a.RegionID, a.ZipCode,
		a.PostalAddress, a.PostalCityID, a.PostalRegionID, a.PostalZipCode,
		a.Latitude, a.Longitude, a.Phone, a.Email, a.LogoURL,
		a.NonProfit, a.FederalFundsDenied, a.StateFundsDenied, a.OrganizedOperated,
		a.IsActive,
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
