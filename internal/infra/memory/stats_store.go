package memory

import (
	"sync"

	"trivia-match-service/internal/domain"
)

// StatsStore is the in-memory implementation of app.StatsStore.
type StatsStore struct {
	mu    sync.RWMutex
	stats map[string]*domain.PlayerStats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[string]*domain.PlayerStats)}
}

func (s *StatsStore) Get(addr string) (domain.PlayerStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[addr]
	if !ok {
		return domain.PlayerStats{}, false
	}
	return *stats, true
}

func (s *StatsStore) Update(addr string, fn func(*domain.PlayerStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.stats[addr]
	if !ok {
		stats = &domain.PlayerStats{Address: addr}
		s.stats[addr] = stats
	}
	fn(stats)
}
