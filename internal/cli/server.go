package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"narrated-quiz-service/internal/app"
	"narrated-quiz-service/internal/config"
	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/infra/memory"
	"narrated-quiz-service/internal/infra/postgres"
	"narrated-quiz-service/internal/infra/rabbit"
	redisinfra "narrated-quiz-service/internal/infra/redis"
	"narrated-quiz-service/internal/infra/remote"
	"narrated-quiz-service/internal/infra/sqlite"
	"narrated-quiz-service/internal/session"
	"narrated-quiz-service/internal/speech"
	transport "narrated-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the narrated quiz server",
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
	if ctx == nil {
		ctx = context.Background()
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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var sqliteStore *sqlite.QuestionStore
	if cfg.SQLite.Path != "" {
		sqliteStore, err = sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
	}

	bank, err := buildQuestionBank(cfg, redisClient, pool, sqliteStore)
	if err != nil {
		return err
	}

	var store app.SessionRepository
	var prefs session.PreferenceStore
	var audioCache speech.Cache
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
		prefs = redisinfra.NewPreferenceStore(redisClient)
		audioCache = redisinfra.NewAudioCache(redisClient)
	} else {
		store = memory.NewSessionStore()
		prefs = memory.NewPreferenceStore()
		audioCache = memory.NewAudioCache()
	}

	var synth session.Synthesizer
	if cfg.Speech.APIKey != "" {
		openai := speech.NewOpenAISynthesizer(cfg.Speech.APIKey, cfg.Speech.BaseURL, cfg.Speech.Model)
		synth = speech.NewCachingSynthesizer(openai, audioCache, config.TTLDuration(cfg.Speech.CacheTTL, 24*time.Hour))
	} else {
		log.Printf("no speech api key configured; sessions run silent")
	}

	recorders := app.MultiRecorder{app.LogRecorder{}}
	if cfg.Postgres.URL != "" {
		db := postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		recorders = append(recorders, postgres.NewResultStore(db))
	}
	if cfg.Rabbit.URL != "" {
		exchange := cfg.Rabbit.Exchange
		if exchange == "" {
			exchange = "quiz.results"
		}
		publisher, err := rabbit.Dial(cfg.Rabbit.URL, exchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		recorders = append(recorders, publisher)
	}

	service := app.NewQuizService(store, bank, prefs, app.Options{
		Session: session.Config{
			AnswerWithSound:  config.TTLDuration(cfg.Session.AnswerWithSound, 0),
			AnswerSilent:     config.TTLDuration(cfg.Session.AnswerSilent, 0),
			Advance:          config.TTLDuration(cfg.Session.Advance, 0),
			NarrationTimeout: config.TTLDuration(cfg.Session.NarrationTimeout, 0),
			Voice:            session.Voice{Name: cfg.Speech.Voice, Speed: cfg.Speech.Speed},
			RevealMessages:   cfg.Session.RevealMessages,
			Speakable:        speech.SpeakableText,
		},
		Synthesizer: synth,
		Recorder:    recorders,
	})

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(service, transport.RouterConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			CookieSecret:   []byte(cfg.Cookies.Secret),
			SecureCookies:  cfg.Cookies.Secure,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting narrated quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildQuestionBank prefers a remote bank, then Postgres, SQLite, the seed file and finally the
// built-in sample questions.
func buildQuestionBank(cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool, sqliteStore *sqlite.QuestionStore) (session.QuestionBank, error) {
	if cfg.Questions.RemoteURL != "" {
		log.Printf("using remote question bank at %s", cfg.Questions.RemoteURL)
		return remote.NewQuestionClient(cfg.Questions.RemoteURL, 10*time.Second), nil
	}

	var loader memory.QuestionLoader
	switch {
	case pool != nil:
		loader = postgres.NewQuestionLoader(pool)
	case sqliteStore != nil:
		loader = sqliteStore
	default:
		questions, err := staticQuestions(cfg.Questions.SeedFile)
		if err != nil {
			return nil, err
		}
		loader = memory.NewStaticQuestionLoader(questions)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	if redisClient != nil {
		return app.NewQuestionBank(
			redisinfra.NewQuestionRepository(redisClient, loader, questionTTL),
			redisinfra.NewProgressStore(redisClient),
		), nil
	}
	return app.NewQuestionBank(
		memory.NewQuestionRepository(loader, questionTTL),
		memory.NewProgressStore(),
	), nil
}

func staticQuestions(seedFile string) ([]domain.Question, error) {
	if seedFile == "" {
		return memory.SampleQuestions(), nil
	}
	return loadQuestionFile(seedFile)
}
