package redis

import (
	"testing"
	"time"

	"trivia-match-service/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMatchStoreMarksLiveMatches(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewMatchStore(client, time.Minute)

	if id := store.NextID(); id != 1 {
		t.Fatalf("expected redis-allocated id 1, got %d", id)
	}
	if id := store.NextID(); id != 2 {
		t.Fatalf("expected redis-allocated id 2, got %d", id)
	}

	m := app.NewMatch(1, "alice", "usdc", 10, 2, 5, true, time.Now())
	store.Put(m)
	if !mr.Exists("match:live:1") {
		t.Fatalf("expected liveness marker to be set")
	}

	store.Retire(1)
	if mr.Exists("match:live:1") {
		t.Fatalf("expected liveness marker removed")
	}
	if _, ok := store.Get(1); !ok {
		t.Fatalf("retired match must stay retrievable")
	}
}
