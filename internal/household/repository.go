package household

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/store/pg"
)

const (
	procGetByID           = "household_get_by_id"
	procGetMembers        = "household_get_members"
	procGetMemberIncomes  = "household_get_member_incomes"
	procGetAll            = "household_get_all"
	procCount             = "household_count"
	procInsert            = "household_insert"
	procUpdate            = "household_update"
	procDelete            = "household_delete"
	procMemberGetByID     = "household_member_get_by_id"
	procMemberByHousehold = "household_member_get_by_household"
	procMemberInsert      = "household_member_insert"
	procMemberUpdate      = "household_member_update"
	procMemberDelete      = "household_member_delete"
	procIncomeByMember    = "household_member_income_get_by_member"
	procIncomeInsert      = "household_member_income_insert"
	procIncomeUpdate      = "household_member_income_update"
	procIncomeDelete      = "household_member_income_delete"
)

var validate = validator.New()

type PGRepository struct {
	db *pg.Store
}

var _ Repository = (*PGRepository)(nil)

func NewPGRepository(db *pg.Store) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (Household, error) {
	var h Household
	if err := r.db.Get(ctx, &h, procGetByID, id); err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return Household{}, ErrNotFound
		}
		return Household{}, err
	}
	members := []Member{}
	if err := r.db.Select(ctx, &members, procGetMembers, id); err != nil {
		return Household{}, err
	}
	var incomes []Income
	if err := r.db.Select(ctx, &incomes, procGetMemberIncomes, id); err != nil {
		return Household{}, err
	}
	byMember := make(map[int64][]Income, len(members))
	for _, inc := range incomes {
		byMember[inc.MemberID] = append(byMember[inc.MemberID], inc)
	}
	for i := range members {
		members[i].Incomes = byMember[members[i].ID]
		if members[i].Incomes == nil {
			members[i].Incomes = []Income{}
		}
	}
	h.Members = members
	return h, nil
}

func (r *PGRepository) GetAll(ctx context.Context, f Filter) (paging.Page[Household], error) {
	f.Query = f.Query.Normalize()
	rows := []Household{}
	if err := r.db.Select(ctx, &rows, procGetAll, f.Take, f.Skip, f.Name, f.AgencyID, f.Alls); err != nil {
		return paging.Page[Household]{}, err
	}
	total, err := r.db.Scalar(ctx, procCount, f.Name, f.AgencyID)
	if err != nil {
		return paging.Page[Household]{}, err
	}
	return paging.Page[Household]{Data: rows, Count: total}, nil
}

func (r *PGRepository) Insert(ctx context.Context, h Household) (int64, error) {
	if err := checkHousehold(&h); err != nil {
		return 0, err
	}
	for i := range h.Members {
		if err := checkMember(&h.Members[i], false); err != nil {
			return 0, err
		}
	}
	id, err := r.db.Scalar(ctx, procInsert, h.columns()...)
	if err != nil {
		return 0, err
	}
	for _, m := range h.Members {
		m.HouseholdID = id
		if _, err := r.InsertMember(ctx, m); err != nil {
			return id, err
		}
	}
	return id, nil
}

func (r *PGRepository) Update(ctx context.Context, h Household) (bool, error) {
	if h.ID <= 0 {
		return false, ErrInvalidInput
	}
	if err := checkHousehold(&h); err != nil {
		return false, err
	}
	return r.db.Affected(ctx, procUpdate, append([]any{h.ID}, h.columns()...)...)
}

func (r *PGRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.db.Affected(ctx, procDelete, id)
}

func (r *PGRepository) MemberByID(ctx context.Context, id int64) (Member, error) {
	var m Member
	if err := r.db.Get(ctx, &m, procMemberGetByID, id); err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return Member{}, ErrNotFound
		}
		return Member{}, err
	}
	incomes, err := r.IncomesByMember(ctx, id)
	if err != nil {
		return Member{}, err
	}
	m.Incomes = incomes
	return m, nil
}

func (r *PGRepository) MembersByHousehold(ctx context.Context, householdID int64) ([]Member, error) {
	members := []Member{}
	if err := r.db.Select(ctx, &members, procMemberByHousehold, householdID); err != nil {
		return nil, err
	}
	return members, nil
}

// InsertMember stores the member and any incomes it carries.
func (r *PGRepository) InsertMember(ctx context.Context, m Member) (int64, error) {
	if err := checkMember(&m, true); err != nil {
		return 0, err
	}
	id, err := r.db.Scalar(ctx, procMemberInsert, m.columns()...)
	if err != nil {
		return 0, err
	}
	for _, inc := range m.Incomes {
		inc.MemberID = id
		if _, err := r.InsertIncome(ctx, inc); err != nil {
			return id, err
		}
	}
	return id, nil
}

func (r *PGRepository) UpdateMember(ctx context.Context, m Member) (bool, error) {
	if m.ID <= 0 {
		return false, ErrInvalidInput
	}
	if err := checkMember(&m, true); err != nil {
		return false, err
	}
	return r.db.Affected(ctx, procMemberUpdate, append([]any{m.ID}, m.columns()...)...)
}

func (r *PGRepository) DeleteMember(ctx context.Context, id int64) (bool, error) {
	return r.db.Affected(ctx, procMemberDelete, id)
}

func (r *PGRepository) IncomesByMember(ctx context.Context, memberID int64) ([]Income, error) {
	incomes := []Income{}
	if err := r.db.Select(ctx, &incomes, procIncomeByMember, memberID); err != nil {
		return nil, err
	}
	return incomes, nil
}

func (r *PGRepository) InsertIncome(ctx context.Context, i Income) (int64, error) {
	if i.MemberID <= 0 {
		return 0, ErrInvalidInput
	}
	if err := checkIncome(&i); err != nil {
		return 0, err
	}
	return r.db.Scalar(ctx, procIncomeInsert, i.MemberID, i.Source, i.Amount, i.Frequency)
}

func (r *PGRepository) UpdateIncome(ctx context.Context, i Income) (bool, error) {
	if i.ID <= 0 {
		return false, ErrInvalidInput
	}
	if err := checkIncome(&i); err != nil {
		return false, err
	}
	return r.db.Affected(ctx, procIncomeUpdate, i.ID, i.Source, i.Amount, i.Frequency)
}

func (r *PGRepository) DeleteIncome(ctx context.Context, id int64) (bool, error) {
	return r.db.Affected(ctx, procIncomeDelete, id)
}

func checkHousehold(h *Household) error {
	h.Name = strings.TrimSpace(h.Name)
	if err := validate.Struct(h); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	return nil
}

// checkMember validates a member and its incomes. Members nested in a new
// household have no household id yet.
func checkMember(m *Member, needHousehold bool) error {
	m.FirstName = strings.TrimSpace(m.FirstName)
	m.LastName = strings.TrimSpace(m.LastName)
	if needHousehold && m.HouseholdID <= 0 {
		return ErrInvalidInput
	}
	if err := validate.Struct(m); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	for i := range m.Incomes {
		if err := checkIncome(&m.Incomes[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkIncome(i *Income) error {
	i.Source = strings.TrimSpace(i.Source)
	i.Frequency = strings.ToLower(strings.TrimSpace(i.Frequency))
	if err := validate.Struct(i); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	if i.Amount.IsNegative() {
		return ErrInvalidInput
	}
	return nil
}

func (h Household) columns() []any {
	return []any{h.AgencyID, h.Name, h.Address, h.CityID, h.RegionID, h.ZipCode, h.Phone, h.Email, h.IsActive}
}

func (m Member) columns() []any {
	return []any{m.HouseholdID, m.FirstName, m.LastName, m.BirthDate, m.Relationship, m.EducationLevelID, m.IsHead}
}
