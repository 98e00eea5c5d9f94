package redis

import (
	"testing"

	"trivia-match-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestStatsStoreWritesThrough(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStatsStore(client)

	store.Update("alice", func(s *domain.PlayerStats) {
		s.TotalWins = 2
		s.TotalEarnings = 38
		s.HighestScore = 4
	})

	if got := mr.HGet("player:stats:alice", "totalWins"); got != "2" {
		t.Fatalf("expected write-through totalWins=2, got %q", got)
	}

	// A fresh store on the same redis sees the copy left behind.
	other := NewStatsStore(client)
	stats, ok := other.Get("alice")
	if !ok {
		t.Fatalf("expected stats from redis fallback")
	}
	if stats.TotalWins != 2 || stats.TotalEarnings != 38 || stats.HighestScore != 4 {
		t.Fatalf("unexpected stats from fallback: %+v", stats)
	}
}
