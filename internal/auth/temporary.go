package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"nutriadmin.org/internal/store/pg"
)

const (
	procTempPasswordInsert       = "temporary_password_insert"
	procTempPasswordGetByUser    = "temporary_password_get_by_user"
	procTempPasswordDeleteByUser = "temporary_password_delete_by_user"
)

// TemporaryPassword records a system-issued credential. Only its bcrypt hash is kept.
type TemporaryPassword struct {
	ID           int64     `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type TemporaryPasswordStore interface {
	Insert(ctx context.Context, userID, password string) (int64, error)
	ByUser(ctx context.Context, userID string) ([]TemporaryPassword, error)
	DeleteByUser(ctx context.Context, userID string) (bool, error)
}

type PGTemporaryPasswords struct {
	db *pg.Store
}

var _ TemporaryPasswordStore = (*PGTemporaryPasswords)(nil)

func NewPGTemporaryPasswords(db *pg.Store) *PGTemporaryPasswords {
	return &PGTemporaryPasswords{db: db}
}

// Insert hashes password and records it for userID.
func (s *PGTemporaryPasswords) Insert(ctx context.Context, userID, password string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrInvalidInput
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.db.Scalar(ctx, procTempPasswordInsert, userID, hash)
}

func (s *PGTemporaryPasswords) ByUser(ctx context.Context, userID string) ([]TemporaryPassword, error) {
	rows := []TemporaryPassword{}
	if err := s.db.Select(ctx, &rows, procTempPasswordGetByUser, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PGTemporaryPasswords) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	return s.db.Affected(ctx, procTempPasswordDeleteByUser, userID)
}

// MemoryTemporaryPasswords keeps temporary password records in process.
type MemoryTemporaryPasswords struct {
	mu   sync.RWMutex
	seq  int64
	rows []TemporaryPassword
}

var _ TemporaryPasswordStore = (*MemoryTemporaryPasswords)(nil)

func NewMemoryTemporaryPasswords() *MemoryTemporaryPasswords {
	return &MemoryTemporaryPasswords{}
}

func (s *MemoryTemporaryPasswords) Insert(ctx context.Context, userID, password string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrInvalidInput
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.rows = append(s.rows, TemporaryPassword{ID: s.seq, UserID: userID, PasswordHash: hash, CreatedAt: time.Now().UTC()})
	return s.seq, nil
}

func (s *MemoryTemporaryPasswords) ByUser(ctx context.Context, userID string) ([]TemporaryPassword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []TemporaryPassword{}
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryTemporaryPasswords) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	removed := false
	for _, r := range s.rows {
		if r.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return removed, nil
}
