package main

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

	"github.com/go-playground/validator/v10"

	"github.com/DeafMist/smart-portfolio/backend/internal/aggregate"
	"github.com/DeafMist/smart-portfolio/backend/internal/auth"
	"github.com/DeafMist/smart-portfolio/backend/internal/config"
	"github.com/DeafMist/smart-portfolio/backend/internal/elasticsearch"
	"github.com/DeafMist/smart-portfolio/backend/internal/events"
	"github.com/DeafMist/smart-portfolio/backend/internal/logger"
	"github.com/DeafMist/smart-portfolio/backend/internal/metrics"
	"github.com/DeafMist/smart-portfolio/backend/internal/portfolio"
	"github.com/DeafMist/smart-portfolio/backend/internal/quotes"
	"github.com/DeafMist/smart-portfolio/backend/internal/sentiment"
	"github.com/DeafMist/smart-portfolio/backend/internal/sources"
)

func main() {
	log := logger.New("api")
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("load .env", slog.Any("err", err))
	}
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv, cleanup, err := newServer(ctx, cfg, log)
	if err != nil {
		log.Error("init server", slog.Any("err", err))
		os.Exit(1)
	}
	defer cleanup()

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Error("init auth", slog.Any("err", err))
		os.Exit(1)
	}

	// filtered news runs one model call per relevant item
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(verifier.Middleware),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.News.Timeout + 2*time.Minute,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
	srv.wait()
}

func newServer(ctx context.Context, cfg *config.API, log *slog.Logger) (*server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	httpClient := sources.NewHTTPClient(cfg.News.Timeout)
	etmarkets := sources.NewETMarkets(cfg.News.ETMarketsFeedURL, cfg.News.PerSourceLimit, httpClient)
	moneycontrol, err := sources.NewMoneycontrol(cfg.News.MoneycontrolURL, cfg.News.MoneycontrolBaseURL, cfg.News.PerSourceLimit, httpClient)
	if err != nil {
		return nil, cleanup, fmt.Errorf("moneycontrol source: %w", err)
	}

	store, closeStore, err := newPortfolioStore(ctx, cfg.Portfolio)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeStore)

	aggregator := aggregate.New(aggregate.Config{
		Limit:     cfg.News.Limit,
		Threshold: cfg.News.SimilarityThreshold,
	}, log, etmarkets, moneycontrol)

	srv := &server{
		log:         log,
		metrics:     metrics.New("api"),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		aggregator:  aggregator,
		newsTimeout: cfg.News.Timeout,
		concurrency: cfg.Sentiment.Concurrency,
		store:       store,
		quotes:      quotes.New(cfg.QuotesBaseURL, cfg.QuotesTimeout),
		defaultPage: cfg.DefaultPage,
		maxPage:     cfg.MaxPage,
		now:         time.Now,
	}

	if cfg.Sentiment.GeminiAPIKey != "" {
		gen, err := sentiment.NewGemini(ctx, cfg.Sentiment.GeminiAPIKey, cfg.Sentiment.GeminiModel)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init gemini: %w", err)
		}
		srv.analyzer = sentiment.NewModelAnalyzer(gen)
	} else {
		log.Warn("GEMINI_API_KEY not set, sentiment analysis disabled")
	}

	if cfg.Kafka.Enabled() {
		pub := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				log.Warn("close publisher", slog.Any("err", err))
			}
		})
		srv.publisher = pub
		log.Info("publishing aggregated news", slog.String("topic", cfg.KafkaTopic))
	}

	if cfg.ArchiveEnabled {
		es, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init elasticsearch: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := es.Ping(pingCtx); err != nil {
			log.Warn("news archive unreachable at startup", slog.Any("err", err))
		}
		cancel()
		srv.archive = es
	}

	return srv, cleanup, nil
}

func newPortfolioStore(ctx context.Context, cfg config.Portfolio) (portfolio.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMongo:
		store := portfolio.NewMongoStore(cfg.MongoURI, cfg.MongoDatabase)
		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
		}, nil
	case config.BackendRedis:
		client, err := portfolio.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, func() {}, err
		}
		return portfolio.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		return portfolio.NewMemoryStore(), func() {}, nil
	}
}
