package conversation

import (
	"sort"
	"sync"
)

// Store owns one Manager per session id.
type Store struct {
	mu       sync.Mutex
	cfg      Config
	sessions map[string]*Manager
}

// NewStore creates an empty store whose managers share cfg.
func NewStore(cfg Config) *Store {
	return &Store{
		cfg:      cfg,
		sessions: make(map[string]*Manager),
	}
}

// Get returns the session's manager, creating it on first use.
func (s *Store) Get(id string) *Manager {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.sessions[id]
	if !ok {
		m = NewManager(s.cfg)
		s.sessions[id] = m
	}
	return m
}

// Lookup returns the session's manager without creating one.
func (s *Store) Lookup(id string) (*Manager, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[id]
	return m, ok
}

// Reset returns the session to its system turn.
func (s *Store) Reset(id string) *Manager {
	m := s.Get(id)
	m.Reset()
	return m
}

// Delete forgets the session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// IDs lists known session ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Config returns the configuration new managers are created with.
func (s *Store) Config() Config {
	return s.cfg
}
