package lookup

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"nutriadmin.org/internal/paging"
)

// MemoryStore implements Repository with in-process concurrency safety.
// Rows are listed by display order, then id.
type MemoryStore struct {
	def Definition

	mu    sync.RWMutex
	seq   int64
	items map[int64]Item
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty table for def, optionally pre-filled with seed names.
func NewMemoryStore(def Definition, seed ...string) *MemoryStore {
	s := &MemoryStore{def: def, items: make(map[int64]Item)}
	for i, name := range seed {
		_, _ = s.Insert(context.Background(), Item{Name: name, DisplayOrder: i + 1, IsActive: true})
	}
	return s
}

func (s *MemoryStore) Definition() Definition { return s.def }

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

func (s *MemoryStore) GetAll(ctx context.Context, q paging.Query) (paging.Page[Item], error) {
	q = q.Normalize()
	s.mu.RLock()
	matches := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if q.Matches(item.Name) {
			matches = append(matches, item)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DisplayOrder != matches[j].DisplayOrder {
			return matches[i].DisplayOrder < matches[j].DisplayOrder
		}
		return matches[i].ID < matches[j].ID
	})
	return paging.Slice(q, matches), nil
}

func (s *MemoryStore) Insert(ctx context.Context, item Item) (int64, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := validate(item); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	item.ID = s.seq
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = nil
	s.items[item.ID] = item
	return item.ID, nil
}

func (s *MemoryStore) Update(ctx context.Context, item Item) (bool, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := validate(item); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[item.ID]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = &now
	s.items[item.ID] = item
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

func (s *MemoryStore) UpdateDisplayOrder(ctx context.Context, id int64, order int) (bool, error) {
	if !s.def.Orderable {
		return false, ErrNotOrderable
	}
	if order < 0 {
		return false, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	item.DisplayOrder = order
	item.UpdatedAt = &now
	s.items[id] = item
	return true, nil
}
