package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/stockboard/internal/store"
)

// Manager creates and caches the sessions of all browsers.
type Manager struct {
	db    *sql.DB
	key   *[32]byte
	ready atomic.Bool

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager storing sessions in db.
func NewManager(ctx context.Context, db *sql.DB) (*Manager, error) {
	key, err := store.GetSealKey(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("loading seal key: %w", err)
	}
	return &Manager{db: db, key: key, sessions: make(map[string]*Session)}, nil
}

// GuestIdle is how long a cached session that is not logged in survives
// without requests.
const GuestIdle = 30 * time.Minute

// Init migrates stored sessions and removes those idle for longer than
// maxAge. Until it returns, every session reports Loading. The manager is
// ready afterwards even when Init fails, so sessions restore one by one.
func (m *Manager) Init(ctx context.Context, maxAge time.Duration) error {
	defer m.ready.Store(true)

	moved, err := store.MigrateSessionKey(ctx, m.db, KeyLegacyToken, KeyToken)
	if err != nil {
		return fmt.Errorf("migrating session tokens: %w", err)
	}
	if moved > 0 {
		slog.Info("migrated legacy session tokens", "count", moved)
	}

	if _, err := m.Cleanup(ctx, maxAge); err != nil {
		return err
	}
	return nil
}

// Ready reports whether Init has completed.
func (m *Manager) Ready() bool {
	return m.ready.Load()
}

// NewID returns a fresh session id.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

// Guest returns a new session under a fresh id. It is logged out once the
// manager is ready and Loading before. It is not cached and touches no
// storage until the browser comes back with its cookie.
func (m *Manager) Guest() *Session {
	id := m.NewID()
	s := New(id, m.storage(id))
	if m.Ready() {
		s.checked = true
		s.reset()
	}
	return s
}

// Lookup returns the session for id without adding it to the cache. A
// session that is not cached is restored from storage once the manager is
// ready.
func (m *Manager) Lookup(ctx context.Context, id string) *Session {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok {
		s = New(id, m.storage(id))
	}
	if m.Ready() && !s.Checked() {
		s.CheckAuth(ctx)
	}
	return s
}

// Cached returns the number of sessions held in memory.
func (m *Manager) Cached() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) storage(id string) *sqlStorage {
	return &sqlStorage{db: m.db, sessionID: id, key: m.key}
}

// Session returns the session for id, creating it in Loading state. The
// first call after Init restores it from storage.
func (m *Manager) Session(ctx context.Context, id string) *Session {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		s = New(id, m.storage(id))
		m.sessions[id] = s
	}
	m.mu.Unlock()

	s.touch()
	if m.Ready() && !s.Checked() {
		s.CheckAuth(ctx)
	}
	return s
}

// Cleanup deletes stored sessions and forgets cached ones not used within
// maxAge, or within GuestIdle for sessions that are not logged in. It
// returns the ids of the forgotten cached sessions.
func (m *Manager) Cleanup(ctx context.Context, maxAge time.Duration) ([]string, error) {
	now := time.Now()
	before := now.Add(-maxAge)
	guestBefore := now.Add(-min(maxAge, GuestIdle))

	n, err := store.DeleteStaleSessions(ctx, m.db, before)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		slog.Info("deleted stale session values", "count", n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var dropped []string
	for id, s := range m.sessions {
		cutoff := before
		if s.State() != Authenticated {
			cutoff = guestBefore
		}
		if s.seenBefore(cutoff) {
			delete(m.sessions, id)
			dropped = append(dropped, id)
		}
	}
	return dropped, nil
}
