package auth

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"nutriadmin.org/internal/store/pg"
)

const (
	PermSchoolCreate = "school.create"
	PermSchoolRead   = "school.read"
	PermSchoolUpdate = "school.update"
	PermSchoolDelete = "school.delete"
)

// SchoolPermissions are granted to every newly registered agency administrator.
var SchoolPermissions = []string{PermSchoolCreate, PermSchoolRead, PermSchoolUpdate, PermSchoolDelete}

const (
	procUserPermissionInsert       = "user_permission_insert"
	procUserPermissionInsertByName = "user_permission_insert_by_name"
	procUserPermissionGetByUser    = "user_permission_get_by_user"
	procUserPermissionDeleteByUser = "user_permission_delete_by_user"
	procRolePermissionGetByRole    = "role_permission_get_by_role"
)

// Permission is a fine-grained capability, stored in the permission lookup.
type Permission struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// PermissionStore assigns permissions to users and reads role grants.
type PermissionStore interface {
	Assign(ctx context.Context, userID string, permissionID int64) (int64, error)
	AssignByName(ctx context.Context, userID, name string) (int64, error)
	ByUser(ctx context.Context, userID string) ([]Permission, error)
	ByRole(ctx context.Context, role string) ([]Permission, error)
	RevokeAll(ctx context.Context, userID string) (bool, error)
}

// EffectivePermissions merges the user's own grants with those of its roles,
// returning sorted unique names.
func EffectivePermissions(ctx context.Context, store PermissionStore, userID string, roles []string) ([]string, error) {
	own, err := store.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	add := func(list []Permission) {
		for _, p := range list {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			out = append(out, p.Name)
		}
	}
	add(own)
	for _, r := range roles {
		list, err := store.ByRole(ctx, r)
		if err != nil {
			return nil, err
		}
		add(list)
	}
	sort.Strings(out)
	return out, nil
}

type PGPermissions struct {
	db *pg.Store
}

var _ PermissionStore = (*PGPermissions)(nil)

func NewPGPermissions(db *pg.Store) *PGPermissions {
	return &PGPermissions{db: db}
}

func (s *PGPermissions) Assign(ctx context.Context, userID string, permissionID int64) (int64, error) {
	if strings.TrimSpace(userID) == "" || permissionID <= 0 {
		return 0, ErrInvalidInput
	}
	return s.db.Scalar(ctx, procUserPermissionInsert, userID, permissionID)
}

func (s *PGPermissions) AssignByName(ctx context.Context, userID, name string) (int64, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(name) == "" {
		return 0, ErrInvalidInput
	}
	id, err := s.db.Scalar(ctx, procUserPermissionInsertByName, userID, name)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, ErrNotFound
	}
	return id, nil
}

func (s *PGPermissions) ByUser(ctx context.Context, userID string) ([]Permission, error) {
	perms := []Permission{}
	if err := s.db.Select(ctx, &perms, procUserPermissionGetByUser, userID); err != nil {
		return nil, err
	}
	return perms, nil
}

func (s *PGPermissions) ByRole(ctx context.Context, role string) ([]Permission, error) {
	perms := []Permission{}
	if err := s.db.Select(ctx, &perms, procRolePermissionGetByRole, role); err != nil {
		return nil, err
	}
	return perms, nil
}

func (s *PGPermissions) RevokeAll(ctx context.Context, userID string) (bool, error) {
	return s.db.Affected(ctx, procUserPermissionDeleteByUser, userID)
}

// MemoryPermissions keeps the permission catalog and grants in process.
type MemoryPermissions struct {
	mu      sync.RWMutex
	catalog map[int64]Permission
	users   map[string][]int64
	roles   map[string][]int64
	seq     int64
}

var _ PermissionStore = (*MemoryPermissions)(nil)

// NewMemoryPermissions seeds the catalog with names; ids follow argument order from 1.
func NewMemoryPermissions(names ...string) *MemoryPermissions {
	m := &MemoryPermissions{
		catalog: make(map[int64]Permission),
		users:   make(map[string][]int64),
		roles:   make(map[string][]int64),
	}
	for i, n := range names {
		id := int64(i + 1)
		m.catalog[id] = Permission{ID: id, Name: n}
	}
	return m
}

// GrantRole attaches catalog permissions to a role.
func (m *MemoryPermissions) GrantRole(role string, names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		if p, ok := m.byName(n); ok {
			m.roles[role] = append(m.roles[role], p.ID)
		}
	}
}

func (m *MemoryPermissions) Assign(ctx context.Context, userID string, permissionID int64) (int64, error) {
	if strings.TrimSpace(userID) == "" || permissionID <= 0 {
		return 0, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalog[permissionID]; !ok {
		return 0, errors.Join(pg.ErrReference, ErrNotFound)
	}
	for _, id := range m.users[userID] {
		if id == permissionID {
			return 0, pg.ErrConflict
		}
	}
	m.users[userID] = append(m.users[userID], permissionID)
	m.seq++
	return m.seq, nil
}

func (m *MemoryPermissions) AssignByName(ctx context.Context, userID, name string) (int64, error) {
	m.mu.RLock()
	p, ok := m.byName(name)
	m.mu.RUnlock()
	if !ok {
		return 0, ErrNotFound
	}
	return m.Assign(ctx, userID, p.ID)
}

func (m *MemoryPermissions) ByUser(ctx context.Context, userID string) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolve(m.users[userID]), nil
}

func (m *MemoryPermissions) ByRole(ctx context.Context, role string) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolve(m.roles[role]), nil
}

func (m *MemoryPermissions) RevokeAll(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.users[userID])
	delete(m.users, userID)
	return n > 0, nil
}

func (m *MemoryPermissions) byName(name string) (Permission, bool) {
	for _, p := range m.catalog {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Permission{}, false
}

func (m *MemoryPermissions) resolve(ids []int64) []Permission {
	out := make([]Permission, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.catalog[id])
	}
	return out
}
