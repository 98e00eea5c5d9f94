package memory

import (
	"testing"
	"time"

	"trivia-match-service/internal/app"
)

func TestMatchStoreLifecycle(t *testing.T) {
	store := NewMatchStore()

	if id := store.NextID(); id != 1 {
		t.Fatalf("expected first id 1, got %d", id)
	}
	if id := store.NextID(); id != 2 {
		t.Fatalf("expected second id 2, got %d", id)
	}

	m := app.NewMatch(1, "alice", "usdc", 10, 2, 5, true, time.Now())
	store.Put(m)

	got, ok := store.Get(1)
	if !ok || got.ID() != 1 {
		t.Fatalf("expected match present")
	}
	if len(store.All()) != 1 {
		t.Fatalf("expected one match")
	}

	// retiring keeps the match retrievable for claims and history
	store.Retire(1)
	if _, ok := store.Get(1); !ok {
		t.Fatalf("retired match must stay retrievable")
	}
}
