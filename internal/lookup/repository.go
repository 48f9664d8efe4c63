package lookup

import (
	"context"
	"errors"
	"strings"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/store/pg"
)

// Procedure suffixes appended to Definition.Key.
const (
	procGetByID            = "_get_by_id"
	procGetAll             = "_get_all"
	procCount              = "_count"
	procInsert             = "_insert"
	procUpdate             = "_update"
	procDelete             = "_delete"
	procUpdateDisplayOrder = "_update_display_order"
)

// PGRepository calls the <key>_* procedures of one reference table.
type PGRepository struct {
	db  *pg.Store
	def Definition
}

var _ Repository = (*PGRepository)(nil)

func NewPGRepository(db *pg.Store, def Definition) *PGRepository {
	return &PGRepository{db: db, def: def}
}

func (r *PGRepository) Definition() Definition { return r.def }

func (r *PGRepository) proc(suffix string) string { return r.def.Key + suffix }

func (r *PGRepository) GetByID(ctx context.Context, id int64) (Item, error) {
	var item Item
	if err := r.db.Get(ctx, &item, r.proc(procGetByID), id); err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func (r *PGRepository) GetAll(ctx context.Context, q paging.Query) (paging.Page[Item], error) {
	q = q.Normalize()
	var items []Item
	if err := r.db.Select(ctx, &items, r.proc(procGetAll), q.Take, q.Skip, q.Name, q.Alls); err != nil {
		return paging.Page[Item]{}, err
	}
	total, err := r.db.Scalar(ctx, r.proc(procCount), q.Name)
	if err != nil {
		return paging.Page[Item]{}, err
	}
	if items == nil {
		items = []Item{}
	}
	return paging.Page[Item]{Data: items, Count: total}, nil
}

func (r *PGRepository) Insert(ctx context.Context, item Item) (int64, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := validate(item); err != nil {
		return 0, err
	}
	return r.db.Scalar(ctx, r.proc(procInsert),
		item.Name, item.NameEn, item.Description, item.DisplayOrder, item.IsActive)
}

func (r *PGRepository) Update(ctx context.Context, item Item) (bool, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := validate(item); err != nil {
		return false, err
	}
	return r.db.Affected(ctx, r.proc(procUpdate),
		item.ID, item.Name, item.NameEn, item.Description, item.DisplayOrder, item.IsActive)
}

func (r *PGRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.db.Affected(ctx, r.proc(procDelete), id)
}

func (r *PGRepository) UpdateDisplayOrder(ctx context.Context, id int64, order int) (bool, error) {
	if !r.def.Orderable {
		return false, ErrNotOrderable
	}
	if order < 0 {
		return false, errors.Join(ErrInvalidInput, errors.New("display_order must be >= 0"))
	}
	return r.db.Affected(ctx, r.proc(procUpdateDisplayOrder), id, order)
}
