package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	pgloader "quiz-session-service/internal/infra/postgres"
	redisinfra "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/logging"
	transport "quiz-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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

	log, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		log.Info("migrations applied")
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	tuning := app.Tuning{
		Countdown:         time.Duration(cfg.Session.CountdownSeconds) * time.Second,
		MaxActiveSessions: cfg.Session.MaxActiveSessions,
		AutoStartCap:      cfg.Session.AutoStartCap,
	}
	engine := app.NewEngine(store, quizRepo, app.NewQuestionTimers(), log, tuning)

	hub := transport.NewHub()
	engine.SetNotifier(hub)
	wsHandler := transport.NewWSHandler(engine, hub, log)
	hostHandler := transport.NewHostHandler(engine, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	hostHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz session service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds the static loader when no Postgres is configured;
// useful for demos and local runs.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:   "quiz-1",
			Name: "Warmup",
			Questions: []domain.Question{
				{
					ID:       1,
					Text:     "What is 2 + 2?",
					Duration: 30,
					Points:   10,
					Answers: []domain.Answer{
						{ID: 1, Text: "3", Colour: "red"},
						{ID: 2, Text: "4", Colour: "blue", Correct: true},
						{ID: 3, Text: "5", Colour: "green"},
					},
				},
				{
					ID:       2,
					Text:     "Which planet is closest to the sun?",
					Duration: 30,
					Points:   10,
					Answers: []domain.Answer{
						{ID: 4, Text: "Mercury", Colour: "red", Correct: true},
						{ID: 5, Text: "Venus", Colour: "blue"},
					},
				},
			},
		},
	}
}
