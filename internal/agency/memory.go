package agency

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/program"
)

// Memory implements Repository in process. Program details are resolved through
// Programs, whose ByAgency should read back ProgramIDs.
type Memory struct {
	mu       sync.RWMutex
	seq      int64
	agencies map[int64]Agency
	links    map[int64][]int64

	Programs    program.Repository
	Assignments AssignmentRepository
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{agencies: make(map[int64]Agency), links: make(map[int64][]int64)}
}

// ProgramIDs returns the ids of the programs an agency is enrolled in.
func (m *Memory) ProgramIDs(agencyID int64) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.links[agencyID]...)
}

func (m *Memory) GetByID(ctx context.Context, id int64) (Agency, error) {
	m.mu.RLock()
	a, ok := m.agencies[id]
	m.mu.RUnlock()
	if !ok {
		return Agency{}, ErrNotFound
	}
	if err := m.attach(ctx, &a, true); err != nil {
		return Agency{}, err
	}
	return a, nil
}

func (m *Memory) GetAll(ctx context.Context, f Filter) (paging.Page[Agency], error) {
	f.Query = f.Query.Normalize()
	var owned map[int64]struct{}
	if f.UserID != "" {
		owned = map[int64]struct{}{}
		if m.Assignments != nil {
			if as, err := m.Assignments.ByUser(ctx, f.UserID); err == nil {
				owned[as.AgencyID] = struct{}{}
			}
		}
	}

	m.mu.RLock()
	matches := make([]Agency, 0, len(m.agencies))
	for _, a := range m.agencies {
		if !f.Matches(a.Name) {
			continue
		}
		if (f.RegionID > 0 && a.RegionID != f.RegionID) ||
			(f.CityID > 0 && a.CityID != f.CityID) ||
			(f.StatusID > 0 && a.StatusID != f.StatusID) {
			continue
		}
		if owned != nil {
			if _, ok := owned[a.ID]; !ok {
				continue
			}
		}
		matches = append(matches, a)
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	page := paging.Slice(f.Query, matches)
	for i := range page.Data {
		if err := m.attach(ctx, &page.Data[i], false); err != nil {
			return paging.Page[Agency]{}, err
		}
	}
	return page, nil
}

func (m *Memory) Insert(ctx context.Context, a Agency) (int64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = m.seq
	a.Name = strings.TrimSpace(a.Name)
	a.CreatedAt = time.Now().UTC()
	a.Programs, a.Users = nil, nil
	m.links[a.ID] = dedupe(a.ProgramIDs)
	a.ProgramIDs = nil
	m.agencies[a.ID] = a
	return a.ID, nil
}

func (m *Memory) Update(ctx context.Context, a Agency) (bool, error) {
	if a.ID <= 0 {
		return false, ErrInvalidInput
	}
	if err := Validate(a); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.agencies[a.ID]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	a.Name = strings.TrimSpace(a.Name)
	a.CreatedAt = current.CreatedAt
	a.UpdatedAt = &now
	a.RejectionJustification = current.RejectionJustification
	a.Programs, a.Users = nil, nil
	m.links[a.ID] = dedupe(a.ProgramIDs)
	a.ProgramIDs = nil
	m.agencies[a.ID] = a
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agencies[id]; !ok {
		return false, nil
	}
	delete(m.agencies, id)
	delete(m.links, id)
	return true, nil
}

func (m *Memory) UpdateStatus(ctx context.Context, id, statusID int64, rejectionJustification string) (bool, error) {
	if id <= 0 || statusID <= 0 {
		return false, ErrInvalidInput
	}
	return m.modify(id, func(a *Agency) {
		a.StatusID = statusID
		a.RejectionJustification = strings.TrimSpace(rejectionJustification)
	}), nil
}

func (m *Memory) UpdateLogo(ctx context.Context, id int64, logoURL string) (bool, error) {
	if id <= 0 {
		return false, ErrInvalidInput
	}
	return m.modify(id, func(a *Agency) { a.LogoURL = strings.TrimSpace(logoURL) }), nil
}

func (m *Memory) InsertProgram(ctx context.Context, agencyID, programID int64) (int64, error) {
	if agencyID <= 0 || programID <= 0 {
		return 0, ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agencies[agencyID]; !ok {
		return 0, ErrNotFound
	}
	m.links[agencyID] = dedupe(append(m.links[agencyID], programID))
	m.seq++
	return m.seq, nil
}

func (m *Memory) modify(id int64, fn func(*Agency)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agencies[id]
	if !ok {
		return false
	}
	fn(&a)
	now := time.Now().UTC()
	a.UpdatedAt = &now
	m.agencies[id] = a
	return true
}

func (m *Memory) attach(ctx context.Context, a *Agency, withUsers bool) error {
	a.Programs = []program.Program{}
	if m.Programs != nil {
		programs, err := m.Programs.ByAgency(ctx, a.ID)
		if err != nil {
			return err
		}
		a.Programs = programs
	}
	if !withUsers {
		return nil
	}
	a.Users = []UserAssignment{}
	if m.Assignments != nil {
		users, err := m.Assignments.ByAgency(ctx, a.ID)
		if err != nil {
			return err
		}
		a.Users = users
	}
	return nil
}

// MemoryAssignments implements AssignmentRepository in process.
type MemoryAssignments struct {
	mu   sync.RWMutex
	seq  int64
	rows map[int64]UserAssignment

	// AgencyName resolves the display name stored alongside each row.
	AgencyName func(agencyID int64) string
}

var _ AssignmentRepository = (*MemoryAssignments)(nil)

func NewMemoryAssignments() *MemoryAssignments {
	return &MemoryAssignments{rows: make(map[int64]UserAssignment)}
}

func (m *MemoryAssignments) Insert(ctx context.Context, a UserAssignment) (int64, error) {
	if strings.TrimSpace(a.UserID) == "" || a.AgencyID <= 0 {
		return 0, ErrInvalidInput
	}
	if m.AgencyName != nil {
		a.AgencyName = m.AgencyName(a.AgencyID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = m.seq
	a.CreatedAt = time.Now().UTC()
	m.rows[a.ID] = a
	return a.ID, nil
}

func (m *MemoryAssignments) ByUser(ctx context.Context, userID string) (UserAssignment, error) {
	rows := m.filter(func(a UserAssignment) bool { return a.UserID == userID })
	if len(rows) == 0 {
		return UserAssignment{}, ErrNotFound
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].IsOwner && !rows[j].IsOwner })
	return rows[0], nil
}

func (m *MemoryAssignments) ByAgency(ctx context.Context, agencyID int64) ([]UserAssignment, error) {
	return m.filter(func(a UserAssignment) bool { return a.AgencyID == agencyID }), nil
}

func (m *MemoryAssignments) GetAll(ctx context.Context, f AssignmentFilter) (paging.Page[UserAssignment], error) {
	rows := m.filter(func(a UserAssignment) bool { return f.AgencyID <= 0 || a.AgencyID == f.AgencyID })
	return paging.Slice(f.Query, rows), nil
}

func (m *MemoryAssignments) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *MemoryAssignments) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := false
	for id, a := range m.rows {
		if a.UserID == userID {
			delete(m.rows, id)
			removed = true
		}
	}
	return removed, nil
}

func (m *MemoryAssignments) filter(keep func(UserAssignment) bool) []UserAssignment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []UserAssignment{}
	for _, a := range m.rows {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
