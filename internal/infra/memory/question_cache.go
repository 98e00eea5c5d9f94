package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"trivia-match-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches the question catalog from a backing store (e.g.
// Postgres) for seeding the bank at startup.
type CatalogLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// StaticCatalogLoader serves a fixed catalog; useful for demos and tests.
type StaticCatalogLoader struct {
	questions []domain.Question
}

func NewStaticCatalogLoader(questions []domain.Question) *StaticCatalogLoader {
	return &StaticCatalogLoader{questions: questions}
}

func (l *StaticCatalogLoader) LoadQuestions(context.Context) ([]domain.Question, error) {
	return l.questions, nil
}

// ViewLoader resolves a single redacted question view on cache miss.
type ViewLoader interface {
	LoadQuestionView(ctx context.Context, id uint64) (domain.QuestionView, error)
}

// QuestionViewCache caches redacted question views with TTL to keep the
// player-facing read path off the bank's lock.
type QuestionViewCache struct {
	loader ViewLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[uint64]cachedView
}

type cachedView struct {
	view      domain.QuestionView
	expiresAt time.Time
}

func NewQuestionViewCache(loader ViewLoader, ttl time.Duration) *QuestionViewCache {
	return &QuestionViewCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[uint64]cachedView),
	}
}

func (c *QuestionViewCache) GetQuestionView(ctx context.Context, id uint64) (domain.QuestionView, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.view, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(strconv.FormatUint(id, 10), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.view, nil
		}
		c.mu.RUnlock()

		view, err := c.loader.LoadQuestionView(ctx, id)
		if err != nil {
			return domain.QuestionView{}, err
		}

		c.mu.Lock()
		c.cache[id] = cachedView{view: view, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return view, nil
	})
	if err != nil {
		return domain.QuestionView{}, err
	}
	return result.(domain.QuestionView), nil
}

func (c *QuestionViewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
