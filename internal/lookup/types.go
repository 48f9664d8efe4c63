package lookup

import (
	"context"
	"errors"
	"time"

	"nutriadmin.org/internal/paging"
)

var (
	ErrNotFound     = errors.New("lookup: not found")
	ErrNotOrderable = errors.New("lookup: display order not supported")
	ErrInvalidInput = errors.New("lookup: invalid input")
)

// Item is the row shape shared by every reference table.
type Item struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name" validate:"required,max=150"`
	NameEn       string     `json:"name_en" db:"name_en" validate:"max=150"`
	Description  string     `json:"description" db:"description" validate:"max=500"`
	DisplayOrder int        `json:"display_order" db:"display_order" validate:"gte=0"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Repository is the CRUD contract implemented for every reference table.
type Repository interface {
	Definition() Definition
	GetByID(ctx context.Context, id int64) (Item, error)
	GetAll(ctx context.Context, q paging.Query) (paging.Page[Item], error)
	Insert(ctx context.Context, item Item) (int64, error)
	Update(ctx context.Context, item Item) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	UpdateDisplayOrder(ctx context.Context, id int64, order int) (bool, error)
}

func validate(item Item) error {
	if item.Name == "" {
		return errors.Join(ErrInvalidInput, errors.New("name is required"))
	}
	if item.DisplayOrder < 0 {
		return errors.Join(ErrInvalidInput, errors.New("display_order must be >= 0"))
	}
	return nil
}
