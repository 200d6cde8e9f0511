// ABOUTME: Manager tracks open edit sessions and enforces single write authority.
// ABOUTME: At most one session may hold the buffer for a given entity at a time.

package editor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/studio/internal/session"
)

// Manager hands out controllers and guarantees one writer per entity.
type Manager struct {
	mu       sync.RWMutex
	byID     map[string]*Controller
	byEntity map[string]*Controller
	cfg      Config
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		byID:     make(map[string]*Controller),
		byEntity: make(map[string]*Controller),
		cfg:      cfg,
	}
}

// Open starts a session over entity. It fails if another session already
// holds write authority for the same entity.
func (m *Manager) Open(entity session.Entity) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byEntity[entity.ID]; ok {
		return nil, fmt.Errorf("entity %s already has an open session %s", entity.ID, existing.ID())
	}

	id := uuid.NewString()
	c := open(id, session.Open(entity), m.cfg)
	m.byID[id] = c
	m.byEntity[entity.ID] = c
	return c, nil
}

// Get retrieves an open session by id.
func (m *Manager) Get(id string) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byID[id]
	return c, ok
}

// Close tears down one session and releases its entity for future writers.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	c, ok := m.byID[id]
	if ok {
		delete(m.byID, id)
		delete(m.byEntity, c.Session().Entity().ID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	c.Close()
	return true
}

// CloseAll tears down every open session. Used on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Controller, 0, len(m.byID))
	for id, c := range m.byID {
		all = append(all, c)
		delete(m.byID, id)
	}
	m.byEntity = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
