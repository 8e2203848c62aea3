package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/smart-portfolio/backend/internal/dedupe"
	"github.com/DeafMist/smart-portfolio/backend/internal/metrics"
	"github.com/DeafMist/smart-portfolio/backend/internal/models"
	"github.com/DeafMist/smart-portfolio/backend/internal/processing"
)

type stubIndexer struct {
	docs   []models.ArchivedNews
	failOn string
}

func (s *stubIndexer) IndexNews(_ context.Context, doc models.ArchivedNews) error {
	if doc.URL == s.failOn {
		return errors.New("cluster unavailable")
	}
	s.docs = append(s.docs, doc)
	return nil
}

var archivedAt = time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestArchiver(idx newsIndexer) *archiver {
	return &archiver{
		log:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		index:            idx,
		seen:             dedupe.NewCache(100, time.Hour),
		metrics:          metrics.New("archiver-test"),
		keywordLimit:     5,
		keywordMinLength: 4,
		now:              func() time.Time { return archivedAt },
	}
}

func encodeBatch(t *testing.T, batch models.AggregatedBatch) []byte {
	t.Helper()
	data, err := json.Marshal(batch)
	require.NoError(t, err)
	return data
}

func TestHandleBatchIndexesItems(t *testing.T) {
	idx := &stubIndexer{}
	a := newTestArchiver(idx)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	value := encodeBatch(t, models.AggregatedBatch{
		ID:        "batch-1",
		CreatedAt: created,
		Items: []models.NewsItem{
			{Title: "Reliance Industries shares surge on retail expansion", URL: "https://et.example.com/ril/", Source: models.SourceETMarkets, PublishedAt: "2025-03-01T09:15:00.000Z"},
			{Title: "Banks rally as RBI holds rates", URL: "https://mc.example.com/banks", Source: models.SourceMoneycontrol, PublishedAt: "not a date"},
		},
	})

	require.NoError(t, a.handleBatch(context.Background(), value))
	require.Len(t, idx.docs, 2)

	first := idx.docs[0]
	require.Equal(t, processing.BuildDocumentID("https://et.example.com/ril"), first.ID)
	require.Equal(t, "Reliance Industries shares surge on retail expansion", first.Title)
	require.Equal(t, models.SourceETMarkets, first.Source)
	require.Equal(t, time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC), first.PublishedAt)
	require.Equal(t, archivedAt, first.ArchivedAt)
	require.Equal(t, "batch-1", first.BatchID)
	require.Contains(t, first.Keywords, "reliance")
	require.NotContains(t, first.Keywords, "shares")

	require.Equal(t, created, idx.docs[1].PublishedAt)
	expected := `
# HELP smart_portfolio_archived_items_total Archive writes by outcome.
# TYPE smart_portfolio_archived_items_total counter
smart_portfolio_archived_items_total{outcome="indexed",service="archiver-test"} 2
`
	require.NoError(t, testutil.GatherAndCompare(a.metrics.Registry(), strings.NewReader(expected), "smart_portfolio_archived_items_total"))
}

func TestHandleBatchSkipsDuplicatesAcrossBatches(t *testing.T) {
	idx := &stubIndexer{}
	a := newTestArchiver(idx)
	item := models.NewsItem{Title: "Infosys wins deal", URL: "https://mc.example.com/infy", Source: models.SourceMoneycontrol, PublishedAt: "2025-03-01T09:00:00.000Z"}

	require.NoError(t, a.handleBatch(context.Background(), encodeBatch(t, models.AggregatedBatch{ID: "a", Items: []models.NewsItem{item}})))
	require.NoError(t, a.handleBatch(context.Background(), encodeBatch(t, models.AggregatedBatch{ID: "b", Items: []models.NewsItem{item}})))
	require.Len(t, idx.docs, 1)
	require.Equal(t, "a", idx.docs[0].BatchID)
}

func TestHandleBatchSkipsItemsWithoutURL(t *testing.T) {
	idx := &stubIndexer{}
	a := newTestArchiver(idx)

	value := encodeBatch(t, models.AggregatedBatch{ID: "a", Items: []models.NewsItem{
		{Title: "No link here", Source: models.SourceETMarkets},
		{Title: "  ", URL: "https://et.example.com/blank"},
	}})
	require.NoError(t, a.handleBatch(context.Background(), value))
	require.Empty(t, idx.docs)
}

func TestHandleBatchFailureLeavesItemUnseen(t *testing.T) {
	idx := &stubIndexer{failOn: "https://mc.example.com/2"}
	a := newTestArchiver(idx)
	value := encodeBatch(t, models.AggregatedBatch{ID: "a", Items: []models.NewsItem{
		{Title: "First headline", URL: "https://mc.example.com/1"},
		{Title: "Second headline", URL: "https://mc.example.com/2"},
	}})

	err := a.handleBatch(context.Background(), value)
	require.ErrorContains(t, err, "cluster unavailable")
	require.Len(t, idx.docs, 1)
	require.False(t, a.seen.IsSeen(processing.BuildDocumentID("https://mc.example.com/2")))

	idx.failOn = ""
	require.NoError(t, a.handleBatch(context.Background(), value))
	require.Len(t, idx.docs, 2)
}

func TestHandleBatchInputErrors(t *testing.T) {
	a := newTestArchiver(&stubIndexer{})
	require.Error(t, a.handleBatch(context.Background(), []byte("{broken")))
	require.NoError(t, a.handleBatch(context.Background(), []byte(`{"id":"x","items":[]}`)))
}

type flakyWriter struct {
	failures int
	written  []kafka.Message
}

func (w *flakyWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.failures > 0 {
		w.failures--
		return errors.New("leader not available")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func noBackoff(int) time.Duration { return 0 }

func TestDeadLetterRetriesAndAnnotates(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := &flakyWriter{failures: 2}
	msg := kafka.Message{Partition: 3, Offset: 42, Value: []byte("payload")}

	require.True(t, deadLetter(context.Background(), log, w, msg, errors.New("boom"), noBackoff))
	require.Len(t, w.written, 1)

	headers := map[string]string{}
	for _, h := range w.written[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "3", headers["original_partition"])
	require.Equal(t, "42", headers["original_offset"])
	require.Equal(t, "boom", headers["error"])
	require.Equal(t, []byte("payload"), w.written[0].Value)
}

func TestDeadLetterGivesUp(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := &flakyWriter{failures: dlqAttempts}
	require.False(t, deadLetter(context.Background(), log, w, kafka.Message{}, errors.New("boom"), noBackoff))
	require.Empty(t, w.written)
}

func TestExponentialBackoff(t *testing.T) {
	require.Equal(t, time.Second, exponentialBackoff(0))
	require.Equal(t, 8*time.Second, exponentialBackoff(3))
}
