// Package program manages the service offerings agencies enroll in and the
// coverage of monitor users.
package program

import (
	"context"
	"errors"
	"strings"
	"time"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/store/pg"
)

var (
	ErrNotFound     = errors.New("program: not found")
	ErrInvalidInput = errors.New("program: invalid input")
)

const (
	procGetByID          = "program_get_by_id"
	procGetAll           = "program_get_all"
	procCount            = "program_count"
	procInsert           = "program_insert"
	procUpdate           = "program_update"
	procDelete           = "program_delete"
	procGetByAgency      = "agency_get_programs"
	procUserGetByUser    = "user_program_get_by_user"
	procUserDeleteByUser = "user_program_delete_by_user"
	procUserInsert       = "user_program_insert"
)

type Program struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name" validate:"required,max=150"`
	Description string     `json:"description" db:"description"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (Program, error)
	GetAll(ctx context.Context, q paging.Query) (paging.Page[Program], error)
	Insert(ctx context.Context, p Program) (int64, error)
	Update(ctx context.Context, p Program) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ByAgency(ctx context.Context, agencyID int64) ([]Program, error)
	// ByUser lists the programs a monitor covers.
	ByUser(ctx context.Context, userID string) ([]Program, error)
	// AssignToUser replaces the user's covered program set.
	AssignToUser(ctx context.Context, userID string, programIDs []int64) error
}

type PGRepository struct {
	db *pg.Store
}

var _ Repository = (*PGRepository)(nil)

func NewPGRepository(db *pg.Store) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (Program, error) {
	var p Program
	if err := r.db.Get(ctx, &p, procGetByID, id); err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return Program{}, ErrNotFound
		}
		return Program{}, err
	}
	return p, nil
}

func (r *PGRepository) GetAll(ctx context.Context, q paging.Query) (paging.Page[Program], error) {
	q = q.Normalize()
	programs := []Program{}
	if err := r.db.Select(ctx, &programs, procGetAll, q.Take, q.Skip, q.Name, q.Alls); err != nil {
		return paging.Page[Program]{}, err
	}
	total, err := r.db.Scalar(ctx, procCount, q.Name)
	if err != nil {
		return paging.Page[Program]{}, err
	}
	return paging.Page[Program]{Data: programs, Count: total}, nil
}

func (r *PGRepository) Insert(ctx context.Context, p Program) (int64, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return 0, ErrInvalidInput
	}
	return r.db.Scalar(ctx, procInsert, p.Name, p.Description, p.IsActive)
}

func (r *PGRepository) Update(ctx context.Context, p Program) (bool, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.ID <= 0 || p.Name == "" {
		return false, ErrInvalidInput
	}
	return r.db.Affected(ctx, procUpdate, p.ID, p.Name, p.Description, p.IsActive)
}

func (r *PGRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.db.Affected(ctx, procDelete, id)
}

func (r *PGRepository) ByAgency(ctx context.Context, agencyID int64) ([]Program, error) {
	programs := []Program{}
	if err := r.db.Select(ctx, &programs, procGetByAgency, agencyID); err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *PGRepository) ByUser(ctx context.Context, userID string) ([]Program, error) {
	programs := []Program{}
	if err := r.db.Select(ctx, &programs, procUserGetByUser, userID); err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *PGRepository) AssignToUser(ctx context.Context, userID string, programIDs []int64) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	if _, err := r.db.Scalar(ctx, procUserDeleteByUser, userID); err != nil {
		return err
	}
	for _, id := range dedupe(programIDs) {
		if _, err := r.db.Scalar(ctx, procUserInsert, userID, id); err != nil {
			return err
		}
	}
	return nil
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
