package memory

import (
	"sync"

	"trivia-match-service/internal/app"
)

// MatchStore is the in-memory implementation of app.MatchStore. Terminal
// matches are kept around so claims and history queries keep resolving.
type MatchStore struct {
	mu      sync.RWMutex
	matches map[uint64]*app.Match
	nextID  uint64
}

func NewMatchStore() *MatchStore {
	return &MatchStore{matches: make(map[uint64]*app.Match)}
}

func (s *MatchStore) NextID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *MatchStore) Put(m *app.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID()] = m
}

func (s *MatchStore) Get(id uint64) (*app.Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	return m, ok
}

func (s *MatchStore) All() []*app.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	return out
}

// Retire is a no-op here; only liveness-tracking stores need it.
func (s *MatchStore) Retire(uint64) {}
