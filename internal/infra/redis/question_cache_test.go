package redis

import (
	"context"
	"testing"
	"time"

	"trivia-match-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingViewLoader struct {
	calls int
	view  domain.QuestionView
}

func (l *countingViewLoader) LoadQuestionView(context.Context, uint64) (domain.QuestionView, error) {
	l.calls++
	return l.view, nil
}

func TestQuestionViewCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingViewLoader{view: domain.QuestionView{
		ID:         7,
		Text:       "What is the capital of France?",
		Options:    [4]string{"Berlin", "Paris", "Madrid", "Rome"},
		Category:   "geography",
		Difficulty: 1,
	}}
	cache := NewQuestionViewCache(client, loader, time.Minute)

	view, err := cache.GetQuestionView(context.Background(), 7)
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if view.Options[1] != "Paris" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("question:7:view") {
		t.Fatalf("expected redis key to be set")
	}

	// Second call should hit the redis hash, loader not incremented.
	view, err = cache.GetQuestionView(context.Background(), 7)
	if err != nil {
		t.Fatalf("get view 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if view.Text != "What is the capital of France?" || view.Difficulty != 1 {
		t.Fatalf("cached view lost fields: %+v", view)
	}
}
