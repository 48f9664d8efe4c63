package identity

import (
	"context"
	"sort"
	"strings"
	"sync"

	"nutriadmin.org/internal/paging"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps users and role membership in process.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
	roles map[string]struct{}
	links map[string]map[string]struct{}
}

// NewMemoryStore creates a store that knows the given roles.
func NewMemoryStore(roles ...string) *MemoryStore {
	s := &MemoryStore{
		users: make(map[string]User),
		roles: make(map[string]struct{}),
		links: make(map[string]map[string]struct{}),
	}
	for _, r := range roles {
		s.roles[r] = struct{}{}
	}
	return s
}

func (s *MemoryStore) CreateUser(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.NormalizedEmail == u.NormalizedEmail || other.NormalizedUserName == u.NormalizedUserName {
			return ErrDuplicateUser
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	delete(s.links, id)
	return nil
}

func (s *MemoryStore) UserByID(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) UserByNormalizedEmail(ctx context.Context, email string) (User, error) {
	return s.find(func(u User) bool { return u.NormalizedEmail == email })
}

func (s *MemoryStore) UserByNormalizedName(ctx context.Context, name string) (User, error) {
	return s.find(func(u User) bool { return u.NormalizedUserName == name })
}

func (s *MemoryStore) ListUsers(ctx context.Context, f Filter) (paging.Page[User], error) {
	needle := Normalize(f.Name)
	s.mu.RLock()
	matches := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if needle != "" && !strings.Contains(u.NormalizedUserName, needle) && !strings.Contains(u.NormalizedEmail, needle) {
			continue
		}
		if f.Role != "" {
			if _, ok := s.links[u.ID][f.Role]; !ok {
				continue
			}
		}
		matches = append(matches, u)
	}
	s.mu.RUnlock()
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	q := f.Query
	q.Name = ""
	return paging.Slice(q, matches), nil
}

func (s *MemoryStore) RoleExists(ctx context.Context, role string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[role]
	return ok, nil
}

func (s *MemoryStore) AddUserRole(ctx context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.links[userID] == nil {
		s.links[userID] = make(map[string]struct{})
	}
	s.links[userID][role] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveUserRole(ctx context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for r := range s.links[userID] {
		if strings.EqualFold(r, role) {
			delete(s.links[userID], r)
		}
	}
	return nil
}

func (s *MemoryStore) UserRoles(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make([]string, 0, len(s.links[userID]))
	for r := range s.links[userID] {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles, nil
}

func (s *MemoryStore) find(match func(User) bool) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}
