package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	"trivia-match-service/internal/infra/memory"
	pginfra "trivia-match-service/internal/infra/postgres"
	pgmigrations "trivia-match-service/internal/infra/postgres/migrations"
	redisinfra "trivia-match-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestMatchSettlementEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	cfg := app.NewAdminConfig(app.AdminSettings{
		Admin:       "admin",
		FeePercent:  5,
		MinEntryFee: 1,
		Assets:      []string{"usdc"},
	})
	bank := memory.NewAccountBank(0)
	bank.Mint("alice", "usdc", 100)
	bank.Mint("bob", "usdc", 100)

	questions := app.NewQuestionBank()
	catalog, err := pginfra.NewQuestionLoader(pool).LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	questions.Load(catalog)
	if questions.ActiveCount() != 6 {
		t.Fatalf("expected 6 questions from postgres, got %d", questions.ActiveCount())
	}

	engine := app.NewEngine(cfg, bank, questions,
		redisinfra.NewMatchStore(redisClient, 5*time.Minute),
		app.NewEscrowLedger(),
		redisinfra.NewStatsStore(redisClient))

	archiverCtx, stopArchiver := context.WithCancel(ctx)
	defer stopArchiver()
	go pginfra.NewArchiver(pool, engine).Run(archiverCtx)
	time.Sleep(50 * time.Millisecond) // let the archiver subscribe before events flow

	created, err := engine.CreateMatch(ctx, "alice", "usdc", 10, 2, 5, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	joined, err := engine.JoinMatch(ctx, "bob", created.ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.Status != domain.StatusActive || len(joined.QuestionIDs) != 5 {
		t.Fatalf("expected auto-started match with 5 questions, got %+v", joined)
	}

	for i, qid := range joined.QuestionIDs {
		answer := 0
		if i == 4 {
			answer = 1 // alice misses the last one
		}
		if _, err := engine.SubmitAnswer(ctx, "alice", created.ID, domain.AnswerSubmission{QuestionID: qid, Answer: answer}); err != nil {
			t.Fatalf("alice submit: %v", err)
		}
	}
	for _, qid := range joined.QuestionIDs {
		if _, err := engine.SubmitAnswer(ctx, "bob", created.ID, domain.AnswerSubmission{QuestionID: qid, Answer: 1}); err != nil {
			t.Fatalf("bob submit: %v", err)
		}
	}

	details, _ := engine.GetMatchDetails(created.ID)
	if details.Status != domain.StatusCompleted || len(details.Winners) != 1 || details.Winners[0] != "alice" {
		t.Fatalf("unexpected settlement: %+v", details)
	}

	amount, err := engine.ClaimPrize(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount != 19 {
		t.Fatalf("expected payout 19, got %d", amount)
	}
	if got := bank.Balance("alice", "usdc"); got != 109 {
		t.Fatalf("expected alice balance 109, got %d", got)
	}
	if got := engine.Escrow().Held(created.ID, "usdc"); got != 0 {
		t.Fatalf("expected escrow drained, got %d", got)
	}

	waitForArchive(t, ctx, pool, created.ID)
}

// waitForArchive polls until the asynchronous archiver lands the terminal
// match and the winner's stats in postgres.
func waitForArchive(t *testing.T, ctx context.Context, pool *pgxpool.Pool, matchID uint64) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var status string
		err := pool.QueryRow(ctx, `SELECT status FROM match_archive WHERE id=$1`, int64(matchID)).Scan(&status)
		if err == nil && status == string(domain.StatusCompleted) {
			var raw []byte
			if err := pool.QueryRow(ctx, `SELECT data FROM player_stats WHERE address=$1`, "alice").Scan(&raw); err == nil {
				var stats domain.PlayerStats
				if err := json.Unmarshal(raw, &stats); err != nil {
					t.Fatalf("unmarshal archived stats: %v", err)
				}
				if stats.TotalWins != 1 || stats.TotalEarnings != 19 {
					t.Fatalf("unexpected archived stats: %+v", stats)
				}
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("archive rows did not appear in time")
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			t.Fatalf("marshal question: %v", err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO questions (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, int64(q.ID), string(data)); err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func sampleQuestions() []domain.Question {
	questions := make([]domain.Question, 0, 6)
	for i := 1; i <= 6; i++ {
		questions = append(questions, domain.Question{
			ID:            uint64(i),
			Text:          fmt.Sprintf("question %d", i),
			Options:       [4]string{"right", "wrong", "wrong", "wrong"},
			CorrectAnswer: 0,
			Category:      "general",
			Difficulty:    1,
			Active:        true,
		})
	}
	return questions
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
