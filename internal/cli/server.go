package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/config"
	"trivia-match-service/internal/domain"
	"trivia-match-service/internal/infra/memory"
	pginfra "trivia-match-service/internal/infra/postgres"
	redisinfra "trivia-match-service/internal/infra/redis"
	transport "trivia-match-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the match engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	adminCfg := app.NewAdminConfig(app.AdminSettings{
		Admin:               cfg.Engine.Admin,
		FeePercent:          cfg.Engine.FeePercent,
		MinEntryFee:         cfg.Engine.MinEntryFee,
		MaxMatchesPerPlayer: cfg.Engine.MaxMatchesPerPlayer,
		MatchTimeout:        config.TTLDuration(cfg.Engine.MatchTimeout, time.Hour),
		AnswerTimeout:       config.TTLDuration(cfg.Engine.AnswerTimeout, time.Minute),
		Assets:              cfg.Engine.Assets,
	})

	questions := app.NewQuestionBank()
	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(sampleQuestions())
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
	}
	catalog, err := loader.LoadQuestions(ctx)
	if err != nil {
		return err
	}
	questions.Load(catalog)

	var matches app.MatchStore = memory.NewMatchStore()
	var stats app.StatsStore = memory.NewStatsStore()
	if redisClient != nil {
		matches = redisinfra.NewMatchStore(redisClient, redisTTL)
		stats = redisinfra.NewStatsStore(redisClient)
	}

	bank := memory.NewAccountBank(cfg.Engine.DemoBalance)
	engine := app.NewEngine(adminCfg, bank, questions, matches, app.NewEscrowLedger(), stats)

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var views transport.QuestionViews
	if redisClient != nil {
		views = redisinfra.NewQuestionViewCache(redisClient, engine, questionTTL)
	} else {
		views = memory.NewQuestionViewCache(engine, questionTTL)
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()
	if pool != nil {
		go pginfra.NewArchiver(pool, engine).Run(serverCtx)
	}

	wsHandler := transport.NewWSHandler(engine, views)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting match engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions provides a minimal catalog when Postgres is not
// configured; enough active questions for a five-question match.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Text: "What is the capital of France?", Options: [4]string{"Berlin", "Paris", "Madrid", "Rome"}, CorrectAnswer: 1, Category: "geography", Difficulty: 1, Active: true},
		{ID: 2, Text: "Which planet is known as the Red Planet?", Options: [4]string{"Venus", "Jupiter", "Mars", "Saturn"}, CorrectAnswer: 2, Category: "science", Difficulty: 1, Active: true},
		{ID: 3, Text: "What is 7 x 8?", Options: [4]string{"54", "56", "58", "64"}, CorrectAnswer: 1, Category: "math", Difficulty: 1, Active: true},
		{ID: 4, Text: "Who painted the Mona Lisa?", Options: [4]string{"Van Gogh", "Picasso", "Da Vinci", "Monet"}, CorrectAnswer: 2, Category: "art", Difficulty: 2, Active: true},
		{ID: 5, Text: "What is the largest ocean?", Options: [4]string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectAnswer: 3, Category: "geography", Difficulty: 1, Active: true},
		{ID: 6, Text: "In which year did the Berlin Wall fall?", Options: [4]string{"1987", "1989", "1991", "1993"}, CorrectAnswer: 1, Category: "history", Difficulty: 2, Active: true},
		{ID: 7, Text: "What gas do plants absorb from the atmosphere?", Options: [4]string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"}, CorrectAnswer: 2, Category: "science", Difficulty: 1, Active: true},
	}
}
