package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/config"
	"quiz-battle-service/internal/domain"
	fileloader "quiz-battle-service/internal/infra/file"
	"quiz-battle-service/internal/infra/memory"
	pginfra "quiz-battle-service/internal/infra/postgres"
	redisinfra "quiz-battle-service/internal/infra/redis"
	transport "quiz-battle-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz battle server",
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

	var pool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	switch {
	case cfg.Questions.Dir != "":
		loader = fileloader.NewQuestionLoader(cfg.Questions.Dir)
	case pool != nil:
		loader = pginfra.NewQuestionLoader(pool)
	}

	questionTTL := config.Duration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionSource
	var catalog app.SubjectCatalog
	if redisClient != nil {
		repo := redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
		questions, catalog = repo, repo
	} else {
		repo := memory.NewQuestionRepository(loader, questionTTL)
		questions, catalog = repo, repo
	}

	var progress app.ProgressTracker = memory.NewProgressTracker()
	var archive app.GameArchive = memory.NewGameArchive()
	if bunDB != nil {
		progress = pginfra.NewProgressStore(bunDB)
		archive = pginfra.NewGameArchiveStore(bunDB)
	}

	hub := memory.NewHub()
	var bus app.EventBus = hub
	if redisClient != nil {
		redisBus := redisinfra.NewEventBus(redisClient)
		bus = app.MultiBus{hub, redisBus}
		go func() {
			if err := redisBus.Bridge(ctx, hub); err != nil && ctx.Err() == nil {
				log.Printf("event bridge stopped: %v", err)
			}
		}()
	}

	quizService := app.NewQuizService(memory.NewSessionStore(), questions, progress, archive, catalog)
	battleService := app.NewBattleService(memory.NewBattleStore(), questions, archive, bus).
		WithDuration(config.Duration(cfg.Battle.Duration, app.DefaultBattleDuration))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewQuizHandler(quizService).Register(mux)
	transport.NewBattleHandler(battleService).Register(mux)
	mux.HandleFunc("/ws/battle", transport.NewWSHandler(battleService, hub).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz battle service on :%s", finalPort)
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

// sampleBanks seeds a tiny bank so the server runs without external storage;
// point questions.dir or postgres at real data in production.
func sampleBanks() map[string][]domain.QuestionRecord {
	return map[string][]domain.QuestionRecord{
		"demo": {
			{
				Prompt:        "What is 2 + 2?",
				CorrectAnswer: "4",
				Distractors:   [3]string{"3", "5", "22"},
				Subject:       "demo",
			},
			{
				Prompt:        "Which planet is known as the red planet?",
				CorrectAnswer: "Mars",
				Distractors:   [3]string{"Venus", "Jupiter", "Mercury"},
				Subject:       "demo",
			},
		},
	}
}
