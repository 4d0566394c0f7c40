package storage

import (
	"context"
	"database/sql"
	"sync"

	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
)

// Store hands out scoped sessions over a *sql.DB. Each session without an
// ambient transaction holds one dedicated connection until its callback returns.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	active int
	opened int64
	closed bool
}

// StoreStats describes session usage.
type StoreStats struct {
	ActiveSessions int   `json:"active_sessions"`
	OpenedSessions int64 `json:"opened_sessions"`
}

// NewStore wraps db. The caller keeps ownership of db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithSession runs fn with a session. If ctx carries a transaction (see
// ContextWithTx) the session joins it; otherwise a connection is acquired
// and released when fn returns, whether or not it fails.
func (s *Store) WithSession(ctx context.Context, fn func(Session) error) error {
	if tx, ok := TxFromContext(ctx); ok {
		return s.run(func() error { return fn(&sqlSession{q: tx}) })
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return vaulterrors.NewStorageError(vaulterrors.CodeSessionUnavailable, "store is closed", nil)
	}
	s.mu.Unlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return vaulterrors.NewStorageError(vaulterrors.CodeSessionUnavailable, "acquire connection", err)
	}
	defer conn.Close()

	return s.run(func() error { return fn(&sqlSession{q: conn}) })
}

func (s *Store) run(fn func() error) error {
	s.mu.Lock()
	s.active++
	s.opened++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()
	return fn()
}

// Stats returns current session statistics.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreStats{ActiveSessions: s.active, OpenedSessions: s.opened}
}

// Close rejects new sessions. Sessions in flight are unaffected.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
