package main

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_backend/internal/analysis"
	"outreach_backend/internal/events"
	"outreach_backend/internal/ingest"
	"outreach_backend/internal/jobs"
	"outreach_backend/internal/messages"
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

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "account", cfg.AccountHandle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	clf := classifier.New(classifier.Config{
		APIKey:            cfg.ClassifierAPIKey,
		BaseURL:           cfg.ClassifierBaseURL,
		Model:             cfg.ClassifierModel,
		Timeout:           cfg.ClassifierTimeout,
		RequestsPerMinute: cfg.ClassifierRequestsPerMinute,
	})

	traitsModule := traits.NewModule(pool, eventBus, log)
	if err := traitsModule.Service().Refresh(ctx); err != nil {
		log.Warn("initial trait criteria load failed; batch runs will report idle", "error", err)
	}

	// Worker-side analysis wiring (no HTTP handlers or stream required).
	messagesModule := messages.NewModule(pool, nil, val, log)
	analysisModule := analysis.NewModule(pool, messagesModule.Repository(), traitsModule.Service(), clf, eventBus, nil, log)

	// Run reports travel the account stream back to the dashboard instances,
	// which push them to their open sessions.
	reports := ingest.NewPublisher(rdb, cfg.AccountHandle)

	worker, err := jobs.NewWorker(cfg, analysisModule.Service(), reports, log)
	if err != nil {
		log.Error("failed to initialize jobs worker", "error", err)
		panic("failed to initialize jobs worker: " + err.Error())
	}

	worker.Run(ctx)
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
		return errors.New(name + ": invalid retry attempts")
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
