package postgres

import (
	"context"
	"encoding/json"
	"log"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Archiver tails the engine event stream and writes terminal state to
// Postgres: new questions, settled or cancelled matches, and lifetime player
// stats. This is what survives a process restart; live match state is
// rebuilt from player activity.
type Archiver struct {
	pool   *pgxpool.Pool
	engine *app.Engine
}

func NewArchiver(pool *pgxpool.Pool, engine *app.Engine) *Archiver {
	return &Archiver{pool: pool, engine: engine}
}

// Run consumes events until ctx is cancelled. Write failures are logged and
// skipped; the next event for the same entity rewrites the full row.
func (a *Archiver) Run(ctx context.Context) {
	events, cancel := a.engine.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handle(ctx, ev)
		}
	}
}

func (a *Archiver) handle(ctx context.Context, ev domain.Event) {
	switch ev.Type {
	case domain.EventQuestionAdded:
		a.saveQuestion(ctx, ev.QuestionID)
	case domain.EventMatchEnded, domain.EventRefundIssued:
		a.saveMatch(ctx, ev.MatchID)
		for _, w := range ev.Winners {
			a.saveStats(ctx, w)
		}
		if ev.Player != "" {
			a.saveStats(ctx, ev.Player)
		}
	case domain.EventPrizeClaimed:
		a.saveMatch(ctx, ev.MatchID)
		a.saveStats(ctx, ev.Player)
	}
}

func (a *Archiver) saveQuestion(ctx context.Context, id uint64) {
	q, err := a.engine.Questions().Get(id)
	if err != nil {
		log.Printf("archiver: question %d: %v", id, err)
		return
	}
	data, err := json.Marshal(q)
	if err != nil {
		log.Printf("archiver: marshal question %d: %v", id, err)
		return
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO questions (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		int64(q.ID), string(data))
	if err != nil {
		log.Printf("archiver: save question %d: %v", id, err)
	}
}

func (a *Archiver) saveMatch(ctx context.Context, id uint64) {
	details, err := a.engine.GetMatchDetails(id)
	if err != nil {
		log.Printf("archiver: match %d: %v", id, err)
		return
	}
	data, err := json.Marshal(details)
	if err != nil {
		log.Printf("archiver: marshal match %d: %v", id, err)
		return
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO match_archive (id, status, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, data = EXCLUDED.data`,
		int64(details.ID), string(details.Status), string(data))
	if err != nil {
		log.Printf("archiver: save match %d: %v", id, err)
	}
}

func (a *Archiver) saveStats(ctx context.Context, addr string) {
	stats := a.engine.GetPlayerStats(addr)
	data, err := json.Marshal(stats)
	if err != nil {
		log.Printf("archiver: marshal stats %s: %v", addr, err)
		return
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO player_stats (address, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (address) DO UPDATE SET data = EXCLUDED.data`,
		addr, string(data))
	if err != nil {
		log.Printf("archiver: save stats %s: %v", addr, err)
	}
}
