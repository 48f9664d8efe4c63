package agency

import (
	"context"
	"strings"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/store/pg"
)

const (
	procUserInsert       = "agency_user_insert"
	procUserGetByUser    = "agency_user_get_by_user"
	procUserGetByAgency  = "agency_user_get_by_agency"
	procUserGetAll       = "agency_user_get_all"
	procUserCount        = "agency_user_count"
	procUserDelete       = "agency_user_delete"
	procUserDeleteByUser = "agency_user_delete_by_user"
)

type PGAssignments struct {
	db *pg.Store
}

var _ AssignmentRepository = (*PGAssignments)(nil)

func NewPGAssignments(db *pg.Store) *PGAssignments {
	return &PGAssignments{db: db}
}

func (r *PGAssignments) Insert(ctx context.Context, a UserAssignment) (int64, error) {
	if strings.TrimSpace(a.UserID) == "" || a.AgencyID <= 0 {
		return 0, ErrInvalidInput
	}
	return r.db.Scalar(ctx, procUserInsert, a.UserID, a.AgencyID, a.IsOwner, a.IsMonitor, a.AssignedBy)
}

func (r *PGAssignments) ByUser(ctx context.Context, userID string) (UserAssignment, error) {
	var rows []UserAssignment
	if err := r.db.Select(ctx, &rows, procUserGetByUser, userID); err != nil {
		return UserAssignment{}, err
	}
	if len(rows) == 0 {
		return UserAssignment{}, ErrNotFound
	}
	return rows[0], nil
}

func (r *PGAssignments) ByAgency(ctx context.Context, agencyID int64) ([]UserAssignment, error) {
	rows := []UserAssignment{}
	if err := r.db.Select(ctx, &rows, procUserGetByAgency, agencyID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PGAssignments) GetAll(ctx context.Context, f AssignmentFilter) (paging.Page[UserAssignment], error) {
	f.Query = f.Query.Normalize()
	rows := []UserAssignment{}
	if err := r.db.Select(ctx, &rows, procUserGetAll, f.Take, f.Skip, f.AgencyID, f.Alls); err != nil {
		return paging.Page[UserAssignment]{}, err
	}
	total, err := r.db.Scalar(ctx, procUserCount, f.AgencyID)
	if err != nil {
		return paging.Page[UserAssignment]{}, err
	}
	return paging.Page[UserAssignment]{Data: rows, Count: total}, nil
}

func (r *PGAssignments) Delete(ctx context.Context, id int64) (bool, error) {
	return r.db.Affected(ctx, procUserDelete, id)
}

func (r *PGAssignments) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	return r.db.Affected(ctx, procUserDeleteByUser, userID)
}
