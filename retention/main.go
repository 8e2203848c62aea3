package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/smart-portfolio/backend/internal/config"
	"github.com/DeafMist/smart-portfolio/backend/internal/elasticsearch"
	"github.com/DeafMist/smart-portfolio/backend/internal/logger"
)

const (
	connectAttempts = 10
	firstRetryDelay = 2 * time.Second
	maxRetryDelay   = 30 * time.Second
)

type archivePruner interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	log := logger.New("retention")
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("load .env", slog.Any("err", err))
	}
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}
	// the archive may come up after this job
	if err := waitReady(ctx, log, esClient, connectAttempts, firstRetryDelay); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("shutdown signal received during startup")
			return
		}
		log.Error("news archive unreachable", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("connected to news archive", slog.String("index", cfg.ElasticsearchIndex))

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("retention job running",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	runOnce(ctx, log, esClient, cfg)
	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, esClient, cfg)
		}
	}
}

// waitReady pings until the archive answers, doubling the delay between
// attempts up to maxRetryDelay.
func waitReady(ctx context.Context, log *slog.Logger, p pinger, attempts int, delay time.Duration) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = p.Ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", attempts),
			slog.Duration("retry_in", delay),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, maxRetryDelay)
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

// runOnce deletes archived news published more than cfg.MaxAge ago. Failures
// are logged and retried on the next tick.
func runOnce(ctx context.Context, log *slog.Logger, archive archivePruner, cfg *config.Retention) int64 {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	deleted, err := archive.DeleteOlderThan(subCtx, cfg.MaxAge, cfg.BatchSize)
	if err != nil {
		log.Warn("retention run failed (will retry on next interval)", slog.Any("err", err))
		return 0
	}

	if deleted > 0 {
		log.Info("retention run completed", slog.Int64("deleted", deleted), slog.Duration("max_age", cfg.MaxAge))
	} else {
		log.Debug("retention run completed, no old news found")
	}
	return deleted
}
