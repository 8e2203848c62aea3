package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DeafMist/smart-portfolio/backend/internal/dedupe"
	"github.com/DeafMist/smart-portfolio/backend/internal/events"
	"github.com/DeafMist/smart-portfolio/backend/internal/metrics"
	"github.com/DeafMist/smart-portfolio/backend/internal/models"
	"github.com/DeafMist/smart-portfolio/backend/internal/processing"
)

// Archive outcomes reported to metrics.
const (
	outcomeIndexed   = "indexed"
	outcomeDuplicate = "duplicate"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

type newsIndexer interface {
	IndexNews(ctx context.Context, doc models.ArchivedNews) error
}

type archiver struct {
	log              *slog.Logger
	index            newsIndexer
	seen             *dedupe.Cache
	metrics          *metrics.Metrics
	keywordLimit     int
	keywordMinLength int
	now              func() time.Time
}

// handleBatch indexes every new item of one aggregated batch. Document IDs
// derive from the item URL, so redelivering a partially indexed batch only
// overwrites what is already there.
func (a *archiver) handleBatch(ctx context.Context, value []byte) error {
	batch, err := events.DecodeBatch(value)
	if errors.Is(err, events.ErrEmptyBatch) {
		a.log.Debug("empty batch, nothing to archive")
		return nil
	}
	if err != nil {
		return err
	}

	indexed := 0
	for _, item := range batch.Items {
		doc, ok := a.document(batch, item)
		if !ok {
			a.metrics.ObserveArchive(outcomeSkipped)
			continue
		}
		if a.seen.IsSeen(doc.ID) {
			a.log.Debug("duplicate news", slog.String("id", doc.ID))
			a.metrics.ObserveArchive(outcomeDuplicate)
			continue
		}

		if err := a.index.IndexNews(ctx, doc); err != nil {
			a.metrics.ObserveArchive(outcomeFailed)
			return fmt.Errorf("index %s: %w", item.URL, err)
		}
		a.seen.MarkSeen(doc.ID)
		a.metrics.ObserveArchive(outcomeIndexed)
		indexed++
	}

	a.log.Info("batch archived",
		slog.String("batch_id", batch.ID),
		slog.Int("items", len(batch.Items)),
		slog.Int("indexed", indexed),
	)
	return nil
}

// document converts an item to its archive form. Items without a URL or title
// cannot be archived.
func (a *archiver) document(batch models.AggregatedBatch, item models.NewsItem) (models.ArchivedNews, bool) {
	title := strings.TrimSpace(item.Title)
	id := processing.BuildDocumentID(item.URL)
	if title == "" || id == "" {
		return models.ArchivedNews{}, false
	}

	published, err := models.ParseTimestamp(item.PublishedAt)
	if err != nil {
		published = batch.CreatedAt
	}
	if published.IsZero() {
		published = a.now()
	}

	return models.ArchivedNews{
		ID:          id,
		Title:       title,
		URL:         strings.TrimSpace(item.URL),
		Source:      item.Source,
		PublishedAt: published.UTC(),
		ArchivedAt:  a.now().UTC(),
		Keywords:    processing.ExtractKeywords(title, a.keywordLimit, a.keywordMinLength),
		BatchID:     batch.ID,
	}, true
}
