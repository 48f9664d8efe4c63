// Package household stores applicant households, their members and the income
// each member reports.
package household

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"nutriadmin.org/internal/paging"
)

var (
	ErrNotFound     = errors.New("household: not found")
	ErrInvalidInput = errors.New("household: invalid input")
)

// Income frequencies accepted on HouseholdMemberIncome.
const (
	Weekly   = "weekly"
	Biweekly = "biweekly"
	Monthly  = "monthly"
	Annually = "annually"
)

var periodsPerYear = map[string]int64{
	Weekly:   52,
	Biweekly: 26,
	Monthly:  12,
	Annually: 1,
}

type Household struct {
	ID        int64      `json:"id" db:"id"`
	AgencyID  int64      `json:"agency_id" db:"agency_id" validate:"required,gt=0"`
	Name      string     `json:"name" db:"name" validate:"required,max=200"`
	Address   string     `json:"address" db:"address"`
	CityID    int64      `json:"city_id" db:"city_id"`
	RegionID  int64      `json:"region_id" db:"region_id"`
	ZipCode   string     `json:"zip_code" db:"zip_code" validate:"max=10"`
	Phone     string     `json:"phone" db:"phone"`
	Email     string     `json:"email" db:"email" validate:"omitempty,email"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	Members []Member `json:"members" db:"-"`
}

type Member struct {
	ID               int64      `json:"id" db:"id"`
	HouseholdID      int64      `json:"household_id" db:"household_id"`
	FirstName        string     `json:"first_name" db:"first_name" validate:"required,max=100"`
	LastName         string     `json:"last_name" db:"last_name" validate:"required,max=100"`
	BirthDate        *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	Relationship     string     `json:"relationship" db:"relationship" validate:"max=50"`
	EducationLevelID *int64     `json:"education_level_id,omitempty" db:"education_level_id"`
	IsHead           bool       `json:"is_head" db:"is_head"`

	Incomes []Income `json:"incomes" db:"-"`
}

type Income struct {
	ID        int64           `json:"id" db:"id"`
	MemberID  int64           `json:"member_id" db:"member_id"`
	Source    string          `json:"source" db:"source" validate:"required,max=100"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Frequency string          `json:"frequency" db:"frequency" validate:"oneof=weekly biweekly monthly annually"`
}

// Annual normalises the income to a yearly amount. Unknown frequencies count as zero.
func (i Income) Annual() decimal.Decimal {
	n, ok := periodsPerYear[i.Frequency]
	if !ok {
		return decimal.Zero
	}
	return i.Amount.Mul(decimal.NewFromInt(n))
}

// AnnualIncome sums every member income normalised to a year.
func (h Household) AnnualIncome() decimal.Decimal {
	total := decimal.Zero
	for _, m := range h.Members {
		for _, inc := range m.Incomes {
			total = total.Add(inc.Annual())
		}
	}
	return total
}

// Filter narrows household listings to one agency when AgencyID > 0.
type Filter struct {
	paging.Query
	AgencyID int64
}

type Repository interface {
	// GetByID returns the household with members and their incomes.
	GetByID(ctx context.Context, id int64) (Household, error)
	GetAll(ctx context.Context, f Filter) (paging.Page[Household], error)
	// Insert stores the household, then each member and its incomes.
	Insert(ctx context.Context, h Household) (int64, error)
	Update(ctx context.Context, h Household) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)

	MemberByID(ctx context.Context, id int64) (Member, error)
	MembersByHousehold(ctx context.Context, householdID int64) ([]Member, error)
	InsertMember(ctx context.Context, m Member) (int64, error)
	UpdateMember(ctx context.Context, m Member) (bool, error)
	DeleteMember(ctx context.Context, id int64) (bool, error)

	IncomesByMember(ctx context.Context, memberID int64) ([]Income, error)
	InsertIncome(ctx context.Context, i Income) (int64, error)
	UpdateIncome(ctx context.Context, i Income) (bool, error)
	DeleteIncome(ctx context.Context, id int64) (bool, error)
}
