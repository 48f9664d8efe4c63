// Package school stores the feeding sites an agency operates.
package school

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/store/pg"
)

var (
	ErrNotFound     = errors.New("school: not found")
	ErrInvalidInput = errors.New("school: invalid input")
)

const (
	procGetByID              = "school_get_by_id"
	procGetMealTypes         = "school_get_meal_types"
	procGetAll               = "school_get_all"
	procCount                = "school_count"
	procInsert               = "school_insert"
	procUpdate               = "school_update"
	procDelete               = "school_delete"
	procMealTypeInsert       = "school_meal_type_insert"
	procMealTypeDeleteSchool = "school_meal_type_delete_by_school"
)

type MealType struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type School struct {
	ID                int64      `json:"id" db:"id"`
	AgencyID          int64      `json:"agency_id" db:"agency_id" validate:"required,gt=0"`
	Name              string     `json:"name" db:"name" validate:"required,max=200"`
	Address           string     `json:"address" db:"address"`
	CityID            int64      `json:"city_id" db:"city_id"`
	RegionID          int64      `json:"region_id" db:"region_id"`
	ZipCode           string     `json:"zip_code" db:"zip_code" validate:"max=10"`
	Phone             string     `json:"phone" db:"phone"`
	Email             string     `json:"email" db:"email" validate:"omitempty,email"`
	CenterTypeID      int64      `json:"center_type_id" db:"center_type_id"`
	KitchenTypeID     int64      `json:"kitchen_type_id" db:"kitchen_type_id"`
	OperatingPeriodID int64      `json:"operating_period_id" db:"operating_period_id"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	MealTypeIDs []int64    `json:"meal_type_ids" db:"-"`
	MealTypes   []MealType `json:"meal_types" db:"-"`
}

// Filter narrows school listings to one agency when AgencyID > 0.
type Filter struct {
	paging.Query
	AgencyID int64
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (School, error)
	GetAll(ctx context.Context, f Filter) (paging.Page[School], error)
	Insert(ctx context.Context, s School) (int64, error)
	Update(ctx context.Context, s School) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

var validate = validator.New()

type PGRepository struct {
	db *pg.Store
}

var _ Repository = (*PGRepository)(nil)

func NewPGRepository(db *pg.Store) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (School, error) {
	var s School
	if err := r.db.Get(ctx, &s, procGetByID, id); err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return School{}, ErrNotFound
		}
		return School{}, err
	}
	s.MealTypes = []MealType{}
	if err := r.db.Select(ctx, &s.MealTypes, procGetMealTypes, id); err != nil {
		return School{}, err
	}
	s.MealTypeIDs = make([]int64, 0, len(s.MealTypes))
	for _, mt := range s.MealTypes {
		s.MealTypeIDs = append(s.MealTypeIDs, mt.ID)
	}
	return s, nil
}

func (r *PGRepository) GetAll(ctx context.Context, f Filter) (paging.Page[School], error) {
	f.Query = f.Query.Normalize()
	schools := []School{}
	if err := r.db.Select(ctx, &schools, procGetAll, f.Take, f.Skip, f.Name, f.AgencyID, f.Alls); err != nil {
		return paging.Page[School]{}, err
	}
	total, err := r.db.Scalar(ctx, procCount, f.Name, f.AgencyID)
	if err != nil {
		return paging.Page[School]{}, err
	}
	return paging.Page[School]{Data: schools, Count: total}, nil
}

func (r *PGRepository) Insert(ctx context.Context, s School) (int64, error) {
	if err := check(&s); err != nil {
		return 0, err
	}
	id, err := r.db.Scalar(ctx, procInsert, s.columns()...)
	if err != nil {
		return 0, err
	}
	return id, r.linkMealTypes(ctx, id, s.MealTypeIDs)
}

// Update rewrites the school and replaces its meal types with s.MealTypeIDs.
func (r *PGRepository) Update(ctx context.Context, s School) (bool, error) {
	if s.ID <= 0 {
		return false, ErrInvalidInput
	}
	if err := check(&s); err != nil {
		return false, err
	}
	ok, err := r.db.Affected(ctx, procUpdate, append([]any{s.ID}, s.columns()...)...)
	if err != nil || !ok {
		return ok, err
	}
	if _, err := r.db.Scalar(ctx, procMealTypeDeleteSchool, s.ID); err != nil {
		return true, err
	}
	return true, r.linkMealTypes(ctx, s.ID, s.MealTypeIDs)
}

func (r *PGRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.db.Affected(ctx, procDelete, id)
}

func (r *PGRepository) linkMealTypes(ctx context.Context, schoolID int64, ids []int64) error {
	seen := map[int64]struct{}{}
	for _, mt := range ids {
		if _, dup := seen[mt]; dup || mt <= 0 {
			continue
		}
		seen[mt] = struct{}{}
		if _, err := r.db.Scalar(ctx, procMealTypeInsert, schoolID, mt); err != nil {
			return err
		}
	}
	return nil
}

func check(s *School) error {
	s.Name = strings.TrimSpace(s.Name)
	if err := validate.Struct(s); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	return nil
}

func (s School) columns() []any {
	return []any{
		s.AgencyID, s.Name, s.Address, s.CityID, s.RegionID, s.ZipCode, s.Phone, s.Email,
		s.CenterTypeID, s.KitchenTypeID, s.OperatingPeriodID, s.IsActive,
	}
}
