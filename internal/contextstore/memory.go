package contextstore

import (
	"context"
	"sync"
	"time"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

// MemoryPersistence keeps sessions in a map. Records idle for longer than
// the TTL are treated as absent; a zero TTL keeps them forever.
type MemoryPersistence struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryRecord
}

type memoryRecord struct {
	session   *domain.Session
	expiresAt time.Time
}

// NewMemoryPersistence creates an in-memory persistence with a TTL.
func NewMemoryPersistence(ttl time.Duration) *MemoryPersistence {
	return &MemoryPersistence{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryRecord),
	}
}

// LoadSession returns a copy of the stored session.
func (m *MemoryPersistence) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if m.expired(rec) {
		delete(m.sessions, sessionID)
		return nil, nil
	}
	return rec.session.Clone(), nil
}

// SaveSession stores a copy of the session and refreshes its TTL.
func (m *MemoryPersistence) SaveSession(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := memoryRecord{session: session.Clone()}
	if m.ttl > 0 {
		rec.expiresAt = m.now().Add(m.ttl)
	}
	m.sessions[session.ID] = rec
	m.sweepLocked()
	return nil
}

// DeleteSession removes the session. Deleting a missing session is a no-op.
func (m *MemoryPersistence) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryPersistence) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	return len(m.sessions)
}

func (m *MemoryPersistence) expired(rec memoryRecord) bool {
	return !rec.expiresAt.IsZero() && m.now().After(rec.expiresAt)
}

func (m *MemoryPersistence) sweepLocked() {
	for id, rec := range m.sessions {
		if m.expired(rec) {
			delete(m.sessions, id)
		}
	}
}
