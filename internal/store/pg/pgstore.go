package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Pool bounds the connection pool behind a Store. Zero fields keep the
// database/sql defaults.
type Pool struct {
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store wraps the shared connection pool that every repository calls its
// stored procedures through.
type Store struct {
	db *sql.DB
}

// Open connects through the pgx stdlib driver and verifies the server answers
// before returning.
func Open(ctx context.Context, dsn string, pool Pool) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if pool.MaxConns > 0 {
		db.SetMaxOpenConns(pool.MaxConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
		// idle connections past a third of their lifetime are recycled
		db.SetConnMaxIdleTime(pool.ConnMaxLifetime / 3)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	s := &Store{db: db}
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return s, nil
}

// New wraps an existing handle, typically a sqlmock connection.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }
