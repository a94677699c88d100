package form

import (
	"sync"

	"reportbot/model"
)

// SessionStore keeps in-progress questionnaire state per user. It is
// injected into the handler so the backing can change without touching
// the engine.
type SessionStore interface {
	Get(userID int64) (*model.Session, bool)
	Put(s *model.Session)
	Delete(userID int64)
}

// MemoryStore is the in-process SessionStore. The bot dispatches
// updates on multiple goroutines, so access is mutex-guarded; a single
// user's updates arrive sequentially, so the session itself needs no
// lock.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*model.Session
}

// NewMemoryStore returns an empty in-process session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*model.Session)}
}

func (m *MemoryStore) Get(userID int64) (*model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

func (m *MemoryStore) Put(s *model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
}

func (m *MemoryStore) Delete(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
