package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"news_sentiment/internal/classifier"
	"news_sentiment/internal/config"
	"news_sentiment/internal/domain"
	"news_sentiment/internal/handler"
	"news_sentiment/internal/publisher"
	"news_sentiment/internal/scheduler"
	"news_sentiment/internal/service"
	"news_sentiment/internal/source/newsapi"
	"news_sentiment/internal/storage/postgres"
	rediscache "news_sentiment/internal/storage/redis"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	query := flag.String("query", "", "run a single query, print the result and exit")
	days := flag.Int("days", 0, "lookback window in days for -query")
	maxResults := flag.Int("max", 0, "maximum articles for -query")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	logger.Info("connected to database")

	txManager := postgres.NewTransactionManager(db)
	recordStore := postgres.NewRecordStore(db)
	runStore := postgres.NewRunStore(db, txManager)

	source := newsapi.New(newsapi.Config{
		BaseURL:        cfg.News.BaseURL,
		APIKey:         cfg.News.APIKey,
		Language:       cfg.News.Language,
		SortBy:         cfg.News.SortBy,
		Timeout:        cfg.News.Timeout,
		MaxAttempts:    cfg.News.Retry.MaxAttempts,
		InitialBackoff: cfg.News.Retry.InitialBackoff,
		MaxBackoff:     cfg.News.Retry.MaxBackoff,
	}, logger)

	llm, err := classifier.NewLLM(ctx, cfg.Classifier)
	if err != nil {
		logger.Error("failed to create classifier backend", "error", err)
		os.Exit(1)
	}
	var scorer service.Classifier = classifier.New(llm, cfg.Classifier.Timeout, logger)

	if cfg.Redis.Enabled {
		client, err := rediscache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		scorer = classifier.NewCached(scorer, rediscache.NewScoreCache(client, cfg.Redis.TTL), logger)
		logger.Info("classification cache enabled", "ttl", cfg.Redis.TTL)
	}

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	pipeline := service.NewPipeline(
		source,
		scorer,
		recordStore,
		runStore,
		pub,
		service.PipelineConfig{
			Limits:  cfg.Query.Limits(),
			Workers: cfg.Classifier.Workers,
		},
		logger,
	)

	if *query != "" {
		if err := runOnce(ctx, pipeline, domain.QueryInput{Raw: *query, LookbackDays: *days, MaxResults: *maxResults}); err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	newsHandler := handler.NewNewsHandler(pipeline, recordStore, handler.Services{
		NewsProvider: source.ID(),
		Classifier:   llm.Name(),
		Cache:        cfg.Redis.Enabled,
		Publisher:    cfg.RabbitMQ.Enabled,
	}, logger)

	if err := serve(ctx, cfg, newsHandler, pipeline, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// runOnce prints the run result as JSON. A storage failure still prints the result.
func runOnce(ctx context.Context, pipeline *service.Pipeline, in domain.QueryInput) error {
	report, runErr := pipeline.Run(ctx, in)
	if report == nil {
		return runErr
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return runErr
}

func serve(ctx context.Context, cfg *config.Config, h *handler.NewsHandler, pipeline *service.Pipeline, logger *slog.Logger) error {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.AllowedOrigins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))
	h.Register(r)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Watch.Queries) > 0 {
		sched := scheduler.NewScheduler(pipeline, cfg.Watch.Queries, cfg.Watch.Interval, cfg.Watch.RunTimeout, logger)
		g.Go(func() error {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
