package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"trivia-match-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ViewLoader resolves a single redacted question view on cache miss.
type ViewLoader interface {
	LoadQuestionView(ctx context.Context, id uint64) (domain.QuestionView, error)
}

// QuestionViewCache caches redacted question views in Redis (hash per
// question) and falls back to a loader on miss. Only the redacted shape is
// ever written, so a leaked cache key cannot reveal a correct answer.
// Layout: HSET question:{id}:view text {text} category {cat} difficulty {d} o0..o3 {options}
type QuestionViewCache struct {
	client *redis.Client
	loader ViewLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionViewCache(client *redis.Client, loader ViewLoader, ttl time.Duration) *QuestionViewCache {
	return &QuestionViewCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionViewCache) GetQuestionView(ctx context.Context, id uint64) (domain.QuestionView, error) {
	key := c.viewKey(id)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return buildViewFromCache(id, fields), nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return buildViewFromCache(id, fields), nil
		}

		view, err := c.loader.LoadQuestionView(ctx, id)
		if err != nil {
			return domain.QuestionView{}, err
		}

		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key,
			"text", view.Text,
			"category", view.Category,
			"difficulty", view.Difficulty,
			"o0", view.Options[0],
			"o1", view.Options[1],
			"o2", view.Options[2],
			"o3", view.Options[3],
		)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return view, nil
	})
	if err != nil {
		return domain.QuestionView{}, err
	}
	return result.(domain.QuestionView), nil
}

func (c *QuestionViewCache) viewKey(id uint64) string {
	return "question:" + strconv.FormatUint(id, 10) + ":view"
}

func buildViewFromCache(id uint64, fields map[string]string) domain.QuestionView {
	difficulty, _ := strconv.Atoi(fields["difficulty"])
	return domain.QuestionView{
		ID:         id,
		Text:       fields["text"],
		Options:    [4]string{fields["o0"], fields["o1"], fields["o2"], fields["o3"]},
		Category:   fields["category"],
		Difficulty: difficulty,
	}
}

func (c *QuestionViewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
