package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/smart-portfolio/backend/internal/models"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

var sample = []models.NewsItem{
	{Title: "Sensex jumps 500 points", URL: "https://et.example.com/1", Source: models.SourceETMarkets, PublishedAt: "2025-03-01T09:00:00.000Z"},
	{Title: "Gold slips on strong dollar", URL: "https://mc.example.com/2", Source: models.SourceMoneycontrol, PublishedAt: "2025-03-01T09:05:00.000Z"},
}

func TestPublishBatchRoundTrip(t *testing.T) {
	w := &recordingWriter{}
	p := newPublisher(w, nil)
	created := time.Date(2025, 3, 1, 9, 10, 0, 0, time.UTC)
	p.now = func() time.Time { return created }

	id, err := p.PublishBatch(context.Background(), sample)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Len(t, w.msgs, 1)
	require.Equal(t, id, string(w.msgs[0].Key))

	batch, err := DecodeBatch(w.msgs[0].Value)
	require.NoError(t, err)
	require.Equal(t, id, batch.ID)
	require.True(t, created.Equal(batch.CreatedAt))
	require.Equal(t, sample, batch.Items)
}

func TestPublishBatchSkipsEmpty(t *testing.T) {
	w := &recordingWriter{}
	id, err := newPublisher(w, nil).PublishBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, id)
	require.Empty(t, w.msgs)
}

func TestPublishBatchWriterError(t *testing.T) {
	boom := errors.New("broker unavailable")
	_, err := newPublisher(&recordingWriter{err: boom}, nil).PublishBatch(context.Background(), sample)
	require.ErrorIs(t, err, boom)
}

func TestDecodeBatchRejects(t *testing.T) {
	_, err := DecodeBatch([]byte("{not json"))
	require.Error(t, err)

	_, err = DecodeBatch([]byte(`{"id":"x","items":[]}`))
	require.ErrorIs(t, err, ErrEmptyBatch)
}
