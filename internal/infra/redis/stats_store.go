package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"trivia-match-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// StatsStore is a Redis-aware implementation of app.StatsStore.
// Notes:
//   - The local map stays authoritative for atomic updates, so the engine's
//     monotonicity guarantees hold without Redis round-trips on the hot path.
//   - Redis carries a write-through copy (hash per player) so indexers and
//     leaderboard services can read lifetime stats without touching the engine.
type StatsStore struct {
	client *redis.Client
	mu     sync.RWMutex
	stats  map[string]*domain.PlayerStats
}

func NewStatsStore(client *redis.Client) *StatsStore {
	return &StatsStore{
		client: client,
		stats:  make(map[string]*domain.PlayerStats),
	}
}

func (s *StatsStore) Get(addr string) (domain.PlayerStats, bool) {
	s.mu.RLock()
	stats, ok := s.stats[addr]
	s.mu.RUnlock()
	if ok {
		return *stats, true
	}

	// Fall back to the write-through copy left by another instance.
	fields, err := s.client.HGetAll(context.Background(), s.key(addr)).Result()
	if err != nil || len(fields) == 0 {
		return domain.PlayerStats{}, false
	}
	return statsFromFields(addr, fields), true
}

func (s *StatsStore) Update(addr string, fn func(*domain.PlayerStats)) {
	s.mu.Lock()
	stats, ok := s.stats[addr]
	if !ok {
		stats = &domain.PlayerStats{Address: addr}
		s.stats[addr] = stats
	}
	fn(stats)
	snapshot := *stats
	s.mu.Unlock()

	// best-effort write-through
	_ = s.client.HSet(context.Background(), s.key(addr),
		"totalWins", snapshot.TotalWins,
		"totalEarnings", snapshot.TotalEarnings,
		"totalMatches", snapshot.TotalMatches,
		"totalCorrectAnswers", snapshot.TotalCorrectAnswers,
		"highestScore", uint64(snapshot.HighestScore),
		"lastPlayedAt", snapshot.LastPlayedAt.UnixNano(),
	).Err()
}

func (s *StatsStore) key(addr string) string {
	return "player:stats:" + addr
}

func statsFromFields(addr string, fields map[string]string) domain.PlayerStats {
	stats := domain.PlayerStats{Address: addr}
	stats.TotalWins, _ = strconv.ParseUint(fields["totalWins"], 10, 64)
	stats.TotalEarnings, _ = strconv.ParseInt(fields["totalEarnings"], 10, 64)
	stats.TotalMatches, _ = strconv.ParseUint(fields["totalMatches"], 10, 64)
	stats.TotalCorrectAnswers, _ = strconv.ParseUint(fields["totalCorrectAnswers"], 10, 64)
	if highest, err := strconv.ParseUint(fields["highestScore"], 10, 32); err == nil {
		stats.HighestScore = uint32(highest)
	}
	if ns, err := strconv.ParseInt(fields["lastPlayedAt"], 10, 64); err == nil && ns > 0 {
		stats.LastPlayedAt = time.Unix(0, ns)
	}
	return stats
}
