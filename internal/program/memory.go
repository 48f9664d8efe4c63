package program

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"nutriadmin.org/internal/paging"
)

// Memory implements Repository in process. Agency enrollment is read through
// the AgencyLinks callback so the agency store stays the owner of that relation.
type Memory struct {
	mu       sync.RWMutex
	seq      int64
	programs map[int64]Program
	users    map[string][]int64

	AgencyLinks func(agencyID int64) []int64
}

var _ Repository = (*Memory)(nil)

func NewMemory(seed ...string) *Memory {
	m := &Memory{programs: make(map[int64]Program), users: make(map[string][]int64)}
	for _, name := range seed {
		_, _ = m.Insert(context.Background(), Program{Name: name, IsActive: true})
	}
	return m
}

func (m *Memory) GetByID(ctx context.Context, id int64) (Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.programs[id]
	if !ok {
		return Program{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) GetAll(ctx context.Context, q paging.Query) (paging.Page[Program], error) {
	q = q.Normalize()
	m.mu.RLock()
	matches := make([]Program, 0, len(m.programs))
	for _, p := range m.programs {
		if q.Matches(p.Name) {
			matches = append(matches, p)
		}
	}
	m.mu.RUnlock()
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return paging.Slice(q, matches), nil
}

func (m *Memory) Insert(ctx context.Context, p Program) (int64, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return 0, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = m.seq
	p.CreatedAt = time.Now().UTC()
	m.programs[p.ID] = p
	return p.ID, nil
}

func (m *Memory) Update(ctx context.Context, p Program) (bool, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.ID <= 0 || p.Name == "" {
		return false, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.programs[p.ID]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = &now
	m.programs[p.ID] = p
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.programs[id]; !ok {
		return false, nil
	}
	delete(m.programs, id)
	return true, nil
}

func (m *Memory) ByAgency(ctx context.Context, agencyID int64) ([]Program, error) {
	if m.AgencyLinks == nil {
		return []Program{}, nil
	}
	return m.resolve(m.AgencyLinks(agencyID)), nil
}

func (m *Memory) ByUser(ctx context.Context, userID string) ([]Program, error) {
	m.mu.RLock()
	ids := append([]int64(nil), m.users[userID]...)
	m.mu.RUnlock()
	return m.resolve(ids), nil
}

func (m *Memory) AssignToUser(ctx context.Context, userID string, programIDs []int64) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = dedupe(programIDs)
	return nil
}

func (m *Memory) resolve(ids []int64) []Program {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Program, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.programs[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
