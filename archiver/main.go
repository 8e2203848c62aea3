package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/smart-portfolio/backend/internal/config"
	"github.com/DeafMist/smart-portfolio/backend/internal/dedupe"
	"github.com/DeafMist/smart-portfolio/backend/internal/elasticsearch"
	"github.com/DeafMist/smart-portfolio/backend/internal/logger"
	"github.com/DeafMist/smart-portfolio/backend/internal/metrics"
)

const dlqAttempts = 5

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	log := logger.New("archiver")
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("load .env", slog.Any("err", err))
	}
	cfg, err := config.LoadArchiver()
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
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := esClient.EnsureIndex(indexCtx); err != nil {
		log.Warn("ensure archive index", slog.Any("err", err))
	}
	cancel()

	m := metrics.New("archiver")
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics listener stopped", slog.Any("err", err))
		}
	}()
	defer metricsServer.Close()

	a := &archiver{
		log:              log,
		index:            esClient,
		seen:             dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL),
		metrics:          m,
		keywordLimit:     cfg.KeywordLimit,
		keywordMinLength: cfg.KeywordMinLength,
		now:              time.Now,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  dlqTopic,
		AllowAutoTopicCreation: true,
		MaxAttempts:            3,
	}
	defer dlqWriter.Close()

	log.Info("archiver started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
		slog.String("metrics_addr", cfg.MetricsAddr),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := a.handleBatch(ctx, msg.Value); err != nil {
			log.Warn("archive batch failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			// uncommitted messages are redelivered after a restart
			if !deadLetter(ctx, log, dlqWriter, msg, err, exponentialBackoff) {
				log.Error("DLQ write exhausted retries, leaving message uncommitted",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// deadLetter copies msg to the DLQ with the failure recorded in headers and
// reports whether the write succeeded.
func deadLetter(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error, backoff func(attempt int) time.Duration) bool {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	)
	dlqMsg := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}

	for attempt := range dlqAttempts {
		err := w.WriteMessages(ctx, dlqMsg)
		if err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		wait := backoff(attempt)
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false
		}
	}
	return false
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}
