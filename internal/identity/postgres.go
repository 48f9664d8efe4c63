package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/sqlscan"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/store/pg"
)

const userColumns = `id, user_name, normalized_user_name, email, normalized_email, first_name,
	last_name, second_last_name, phone_number, avatar_url, password_hash, is_active,
	is_temporal_password_actived, email_confirmed, created_at, updated_at`

const userFilter = `($1 = '' or strpos(normalized_user_name, upper($1)) > 0 or strpos(normalized_email, upper($1)) > 0)
	and ($2 = '' or exists (
		select 1 from identity_user_roles ur join identity_roles r on r.id = ur.role_id
		where ur.user_id = identity_users.id and r.name = $2))`

var _ Store = (*PGStore)(nil)

// PGStore keeps identity tables with plain SQL; the stored procedure layer
// does not cover them.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `insert into identity_users(`+userColumns+`)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		u.ID, u.UserName, u.NormalizedUserName, u.Email, u.NormalizedEmail, u.FirstName,
		u.LastName, u.SecondLastName, u.PhoneNumber, u.AvatarURL, u.PasswordHash, u.IsActive,
		u.IsTemporalPasswordActived, u.EmailConfirmed, u.CreatedAt, u.UpdatedAt,
	)
	err = mapErr("create user", err)
	if errors.Is(err, pg.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrDuplicateUser, err)
	}
	return err
}

func (s *PGStore) UpdateUser(ctx context.Context, u User) error {
	res, err := s.db.ExecContext(ctx, `update identity_users set
		user_name=$2, normalized_user_name=$3, email=$4, normalized_email=$5, first_name=$6,
		last_name=$7, second_last_name=$8, phone_number=$9, avatar_url=$10, password_hash=$11,
		is_active=$12, is_temporal_password_actived=$13, email_confirmed=$14, updated_at=$15
		where id=$1`,
		u.ID, u.UserName, u.NormalizedUserName, u.Email, u.NormalizedEmail, u.FirstName,
		u.LastName, u.SecondLastName, u.PhoneNumber, u.AvatarURL, u.PasswordHash,
		u.IsActive, u.IsTemporalPasswordActived, u.EmailConfirmed, u.UpdatedAt,
	)
	if err != nil {
		return mapErr("update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PGStore) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `delete from identity_user_roles where user_id=$1`, id); err != nil {
		return mapErr("delete user roles", err)
	}
	_, err := s.db.ExecContext(ctx, `delete from identity_users where id=$1`, id)
	return mapErr("delete user", err)
}

func (s *PGStore) UserByID(ctx context.Context, id string) (User, error) {
	return s.oneUser(ctx, `select `+userColumns+` from identity_users where id=$1`, id)
}

func (s *PGStore) UserByNormalizedEmail(ctx context.Context, email string) (User, error) {
	return s.oneUser(ctx, `select `+userColumns+` from identity_users where normalized_email=$1`, email)
}

func (s *PGStore) UserByNormalizedName(ctx context.Context, name string) (User, error) {
	return s.oneUser(ctx, `select `+userColumns+` from identity_users where normalized_user_name=$1`, name)
}

func (s *PGStore) ListUsers(ctx context.Context, f Filter) (paging.Page[User], error) {
	var limit any = f.Take
	if f.Alls {
		limit = nil
	}
	users := []User{}
	err := sqlscan.Select(ctx, s.db, &users,
		`select `+userColumns+` from identity_users where `+userFilter+`
		order by created_at, id limit $3 offset $4`,
		f.Name, f.Role, limit, f.Skip)
	if err != nil {
		return paging.Page[User]{}, mapErr("list users", err)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, `select count(*) from identity_users where `+userFilter, f.Name, f.Role).Scan(&total); err != nil {
		return paging.Page[User]{}, mapErr("count users", err)
	}
	return paging.Page[User]{Data: users, Count: total}, nil
}

func (s *PGStore) RoleExists(ctx context.Context, role string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `select exists(select 1 from identity_roles where name=$1)`, role).Scan(&exists)
	return exists, mapErr("role exists", err)
}

func (s *PGStore) AddUserRole(ctx context.Context, userID, role string) error {
	_, err := s.db.ExecContext(ctx,
		`insert into identity_user_roles(user_id, role_id) select $1, id from identity_roles where name=$2
		on conflict do nothing`, userID, role)
	return mapErr("add user role", err)
}

func (s *PGStore) RemoveUserRole(ctx context.Context, userID, role string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from identity_user_roles where user_id=$1
		and role_id in (select id from identity_roles where name=$2)`, userID, role)
	return mapErr("remove user role", err)
}

func (s *PGStore) UserRoles(ctx context.Context, userID string) ([]string, error) {
	roles := []string{}
	err := sqlscan.Select(ctx, s.db, &roles,
		`select r.name from identity_roles r join identity_user_roles ur on ur.role_id = r.id
		where ur.user_id=$1 order by r.name`, userID)
	return roles, mapErr("user roles", err)
}

func (s *PGStore) oneUser(ctx context.Context, query string, arg any) (User, error) {
	var u User
	if err := sqlscan.Get(ctx, s.db, &u, query, arg); err != nil {
		if errors.Is(pg.MapError(err), pg.ErrNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, mapErr("get user", err)
	}
	return u, nil
}

func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("identity: %s: %w", op, pg.MapError(err))
}
