package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"battle-quiz-service/internal/app"
	"battle-quiz-service/internal/config"
	"battle-quiz-service/internal/domain"
	"battle-quiz-service/internal/infra/memory"
	pgloader "battle-quiz-service/internal/infra/postgres"
	redisinfra "battle-quiz-service/internal/infra/redis"
	"battle-quiz-service/internal/matchmaking"
	"battle-quiz-service/internal/scoring"
	transport "battle-quiz-service/internal/transport/http"
	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the battle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// logNotifier writes notification events to the process log. Swap with a
// push-gateway client when the notification service is available.
type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, n domain.Notification) error {
	log.Printf("notify [%s] %s", n.Type, n.Message)
	return nil
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

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionBank())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, questionTTL)
	}

	var queueRepo matchmaking.QueueRepository
	var battleStore app.BattleStore
	var profileStore app.ProfileStore
	if redisClient != nil {
		queueRepo = redisinfra.NewQueueRepository(redisClient)
		battleStore = redisinfra.NewBattleStore(redisClient, redisTTL)
		profileStore = redisinfra.NewProfileStore(redisClient)
	} else {
		queueRepo = memory.NewQueueRepository()
		battleStore = memory.NewBattleStore()
		profileStore = memory.NewProfileStore()
	}

	service := app.NewBattleService(
		queueRepo,
		questionRepo,
		profileStore,
		battleStore,
		logNotifier{},
		scoring.NewEngine(scoring.DefaultConfig()),
		matchmaking.Options{
			QueueTimeout: config.TTLDuration(cfg.Matchmaking.QueueTimeout, matchmaking.DefaultQueueTimeout),
		},
		app.Config{
			QuestionCount:   cfg.Battle.QuestionCount,
			TimePerQuestion: cfg.Battle.TimePerQuestion,
			BotAccuracy:     cfg.Battle.BotAccuracy,
		},
	)
	wsHandler := transport.NewWSHandler(service)

	sweepInterval := config.TTLDuration(cfg.Matchmaking.SweepInterval, 5*time.Second)
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(func() {
			if err := service.Matchmaker().Sweep(context.Background()); err != nil {
				log.Printf("matchmaking sweep: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("sweep job: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			service.ReapStaleBattles(context.Background())
		}),
	)
	if err != nil {
		return fmt.Errorf("reaper job: %w", err)
	}
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

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
		log.Printf("starting battle service on :%s", finalPort)
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

// sampleQuestionBank provides minimal development data; real deployments
// load question sets from Postgres.
func sampleQuestionBank() map[string][]domain.Question {
	general := make([]domain.Question, 0, 10)
	for i := 0; i < 10; i++ {
		general = append(general, domain.Question{
			ID:     fmt.Sprintf("gen-%d", i+1),
			Prompt: fmt.Sprintf("Sample question %d: what is %d + %d?", i+1, i, i+2),
			Options: []domain.Option{
				{Label: "A", Text: fmt.Sprintf("%d", 2*i+1)},
				{Label: "B", Text: fmt.Sprintf("%d", 2*i+2)},
				{Label: "C", Text: fmt.Sprintf("%d", 2*i+3)},
				{Label: "D", Text: fmt.Sprintf("%d", 2*i+4)},
			},
			CorrectLabel: "B",
			Category:     "general",
			Difficulty:   1 + i%3,
		})
	}
	return map[string][]domain.Question{"general": general}
}
