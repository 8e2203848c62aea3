// Package events publishes aggregated news batches to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/smart-portfolio/backend/internal/models"
)

// DefaultTopic carries every successful aggregation.
const DefaultTopic = "news_aggregated"

// ErrEmptyBatch is returned by DecodeBatch for batches without items.
var ErrEmptyBatch = errors.New("empty batch")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per aggregated batch.
type Publisher struct {
	writer messageWriter
	log    *slog.Logger
	now    func() time.Time
}

func NewPublisher(brokers []string, topic string, log *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
	}
	return newPublisher(w, log)
}

func newPublisher(w messageWriter, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{writer: w, log: log, now: time.Now}
}

// PublishBatch sends items as one batch keyed by its generated ID and returns
// that ID. Empty input is not published.
func (p *Publisher) PublishBatch(ctx context.Context, items []models.NewsItem) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	batch := models.AggregatedBatch{
		ID:        uuid.NewString(),
		CreatedAt: p.now().UTC(),
		Items:     items,
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(batch.ID),
		Value: data,
		Time:  batch.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("publish batch %s: %w", batch.ID, err)
	}

	p.log.Debug("batch published", slog.String("batch_id", batch.ID), slog.Int("items", len(items)))
	return batch.ID, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// DecodeBatch parses a message value produced by PublishBatch.
func DecodeBatch(data []byte) (models.AggregatedBatch, error) {
	var batch models.AggregatedBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return models.AggregatedBatch{}, fmt.Errorf("decode batch: %w", err)
	}
	if len(batch.Items) == 0 {
		return models.AggregatedBatch{}, ErrEmptyBatch
	}
	return batch, nil
}
