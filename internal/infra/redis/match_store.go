package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"trivia-match-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// MatchStore is a Redis-aware implementation of app.MatchStore.
// Notes:
//   - Match state itself stays local so the per-match lock keeps its
//     single-writer guarantee.
//   - Redis allocates ids (INCR) and marks live matches, so lobby browsers
//     and sweepers on other instances can discover open matches.
type MatchStore struct {
	client  *redis.Client
	ttl     time.Duration
	mu      sync.RWMutex
	matches map[uint64]*app.Match
	localID uint64
}

func NewMatchStore(client *redis.Client, ttl time.Duration) *MatchStore {
	return &MatchStore{
		client:  client,
		ttl:     ttl,
		matches: make(map[uint64]*app.Match),
	}
}

func (s *MatchStore) NextID() uint64 {
	id, err := s.client.Incr(context.Background(), "match:next_id").Result()
	if err == nil && id > 0 {
		return uint64(id)
	}
	// Redis unavailable; fall back to the local counter.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localID++
	return s.localID
}

func (s *MatchStore) Put(m *app.Match) {
	s.mu.Lock()
	s.matches[m.ID()] = m
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.liveKey(m.ID()), "1", s.ttl).Err()
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

// Retire clears the liveness marker once a match goes terminal. The match
// itself stays retrievable for claims and history queries.
func (s *MatchStore) Retire(id uint64) {
	_ = s.client.Del(context.Background(), s.liveKey(id)).Err()
}

func (s *MatchStore) liveKey(id uint64) string {
	return "match:live:" + strconv.FormatUint(id, 10)
}
