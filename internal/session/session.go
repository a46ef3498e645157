// Package session tracks live conversation sessions in memory: identity,
// activity timestamps, and timeout-based expiry. The durable session table
// is owned by storage; this cache is authoritative for liveness only.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ashita-ai/hisho/internal/model"
)

// DefaultTimeout is the inactivity window after which a session becomes
// eligible for cleanup.
const DefaultTimeout = 300 * time.Second

// Manager owns the in-memory session table. Construct with NewManager and
// inject where needed; cleanup is an explicit periodic call by the host,
// never an implicit side effect of reads.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	timeout  time.Duration
	now      func() time.Time
}

// NewManager creates a session manager. timeout <= 0 falls back to
// DefaultTimeout.
func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		sessions: make(map[string]model.Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Create registers a session in the live table. Creating an existing id
// overwrites it in place — last writer wins, no merge. An empty name gets
// the default "Session-<first 8 of id>".
func (m *Manager) Create(sessionID, name string) model.Session {
	if name == "" {
		short := sessionID
		if len(short) > 8 {
			short = short[:8]
		}
		name = fmt.Sprintf("Session-%s", short)
	}

	now := m.now()
	s := model.Session{
		SessionID:    sessionID,
		Name:         name,
		CreatedAt:    now,
		LastActivity: now,
	}

	m.mu.Lock()
	m.sessions[sessionID] = s
	m.mu.Unlock()
	return s
}

// GetActive returns the live session, if present. There is no lazy expiry
// check: an expired-but-uncleaned session is still returned until
// CleanupExpired runs. Callers needing freshness must clean up first.
func (m *Manager) GetActive(sessionID string) (model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Touch updates the session's last-activity timestamp. Unknown ids are
// ignored.
func (m *Manager) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.LastActivity = m.now()
		m.sessions[sessionID] = s
	}
}

// CleanupExpired evicts every session whose inactivity exceeds the timeout
// and returns the number evicted. Only the in-memory entry is removed; the
// durable record is never deleted.
func (m *Manager) CleanupExpired() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity) > m.timeout {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// List returns all live sessions sorted by id for stable output.
func (m *Manager) List() []model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}
