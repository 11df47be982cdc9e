package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	transport "live-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), f)
		},
	}
}

func runServer(ctx context.Context, f *flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	password := f.hostPassword
	if password == "" {
		password = cfg.Host.Password
	}
	if password == "" {
		return fmt.Errorf("host password not configured")
	}

	port := f.port
	if port == "" {
		port = cfg.Server.Port
	}
	if port == "" {
		port = "8080"
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader
	switch {
	case pool != nil:
		loader = postgres.NewQuestionLoader(pool)
	case cfg.Questions.File != "":
		loader = memory.NewFileQuestionLoader(cfg.Questions.File)
	default:
		loader = memory.NewStaticQuestionLoader(sampleQuestions())
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisstore.NewQuestionBank(redisClient, loader, questionTTL)
	} else {
		bank = memory.NewQuestionBank(loader, questionTTL)
	}

	var (
		games   app.GameRepository
		players app.PlayerRepository
		answers app.AnswerRepository
	)
	if redisClient != nil {
		store := redisstore.NewStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
		games, players, answers = store, store, store
		logger.Info("using redis store", "addr", cfg.Redis.Addr)
	} else {
		store := memory.NewStore()
		games, players, answers = store, store, store
		logger.Info("using in-memory store")
	}

	service := app.NewGameService(games, players, answers, bank,
		app.WithHostPassword(password),
		app.WithLogger(logger),
	)
	handler := transport.NewHandler(service, logger)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions is served when neither Postgres nor a question file is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:   "q1",
			Text: "What is 2 + 2?",
			Choices: []domain.Choice{
				{Text: "3"},
				{Text: "4", IsCorrect: true},
				{Text: "5"},
			},
		},
		{
			ID:   "q2",
			Text: "Which planet is known as the Red Planet?",
			Choices: []domain.Choice{
				{Text: "Venus"},
				{Text: "Mars", IsCorrect: true},
				{Text: "Jupiter"},
			},
		},
	}
}
