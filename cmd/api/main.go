package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_backend/internal/analysis"
	"outreach_backend/internal/conversations"
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/http/router"
	"outreach_backend/internal/ingest"
	"outreach_backend/internal/jobs"
	"outreach_backend/internal/leadership"
	"outreach_backend/internal/messages"
	"outreach_backend/internal/notification"
	"outreach_backend/internal/traits"
	"outreach_backend/platform/ai/classifier"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "account", cfg.AccountHandle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	rdb, err := newRedisClient(cfg)
	if err != nil {
		log.Error("failed to configure redis", "error", err)
		panic("failed to configure redis: " + err.Error())
	}
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer rdb.Close()
	log.Info("redis connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	if !cfg.IsClassifierEnabled() {
		log.Warn("CLASSIFIER_API_KEY not configured; scoring calls will fail upstream")
	}
	clf := classifier.New(classifier.Config{
		APIKey:            cfg.ClassifierAPIKey,
		BaseURL:           cfg.ClassifierBaseURL,
		Model:             cfg.ClassifierModel,
		Timeout:           cfg.ClassifierTimeout,
		RequestsPerMinute: cfg.ClassifierRequestsPerMinute,
	})

	jobsClient, err := jobs.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize jobs client", "error", err)
		panic("failed to initialize jobs client: " + err.Error())
	}
	defer jobsClient.Close()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events and pushes them to
	// connected dashboard sessions over SSE.
	notificationModule := notification.NewModule(log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.Close()

	traitsModule := traits.NewModule(pool, eventBus, log)
	if err := traitsModule.Service().Refresh(ctx); err != nil {
		log.Warn("initial trait criteria load failed; scoring idle until refresh", "error", err)
	}

	streamPublisher := ingest.NewPublisher(rdb, cfg.AccountHandle)
	messagesModule := messages.NewModule(pool, streamPublisher, val, log)

	analysisModule := analysis.NewModule(pool, messagesModule.Repository(), traitsModule.Service(), clf, eventBus, jobsClient, log)

	conversationsModule := conversations.NewModule(messagesModule.Repository(), analysisModule.Repository(), log)
	conversationsModule.RegisterHandlers(eventBus)

	// Leadership is advisory: this instance claims the account slot on boot
	// and releases it on shutdown if still held.
	elector := leadership.New(rdb, cfg.AccountHandle, eventBus, log)
	if err := elector.Start(ctx); err != nil {
		log.Error("failed to start leadership elector", "error", err)
		panic("failed to start leadership elector: " + err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := elector.Shutdown(shutdownCtx); err != nil {
			log.Warn("leadership shutdown failed", "error", err)
		}
	}()

	subscriber := ingest.NewSubscriber(rdb, cfg.AccountHandle, analysisModule.Service(), conversationsModule.Service(), elector, eventBus, log)
	if err := subscriber.Start(ctx); err != nil {
		log.Error("failed to start stream subscriber", "error", err)
		panic("failed to start stream subscriber: " + err.Error())
	}
	defer subscriber.Close()

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			traitsModule,
			messagesModule,
			analysisModule,
			conversationsModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return redis.NewClient(opt), nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
