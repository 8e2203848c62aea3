// Package aggregate merges the news sources into one deduplicated feed.
package aggregate

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/smart-portfolio/backend/internal/dedupe"
	"github.com/DeafMist/smart-portfolio/backend/internal/models"
	"github.com/DeafMist/smart-portfolio/backend/internal/sources"
)

// DefaultLimit caps the aggregated feed.
const DefaultLimit = 16

// Config tunes an Aggregator. Zero values select the defaults.
type Config struct {
	Limit     int
	Threshold float64
}

// Aggregator fetches every source concurrently and merges their items.
type Aggregator struct {
	fetchers  []sources.Fetcher
	limit     int
	threshold float64
	log       *slog.Logger
}

// New builds an Aggregator. Fetcher order is significant: earlier sources win
// duplicate clusters and come first in the output.
func New(cfg Config, log *slog.Logger, fetchers ...sources.Fetcher) *Aggregator {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = dedupe.DefaultThreshold
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{
		fetchers:  fetchers,
		limit:     cfg.Limit,
		threshold: cfg.Threshold,
		log:       log,
	}
}

// Result is the outcome of one aggregation.
type Result struct {
	Items   []models.NewsItem
	Fetched int
	Dropped int
}

// Aggregate runs all fetchers and fails as soon as any of them fails; partial
// results are never returned. On success the concatenated items are
// deduplicated and truncated to the configured limit.
func (a *Aggregator) Aggregate(ctx context.Context) (*Result, error) {
	batches := make([][]models.NewsItem, len(a.fetchers))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range a.fetchers {
		g.Go(func() error {
			items, err := f.Fetch(gctx)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", f.Name(), err)
			}
			a.log.Debug("source fetched", slog.String("source", f.Name()), slog.Int("items", len(items)))
			batches[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, b := range batches {
		total += len(b)
	}
	combined := make([]models.NewsItem, 0, total)
	for _, b := range batches {
		combined = append(combined, b...)
	}

	unique := dedupe.Titles(combined, a.threshold)
	dropped := len(combined) - len(unique)
	if len(unique) > a.limit {
		unique = unique[:a.limit]
	}

	return &Result{Items: unique, Fetched: total, Dropped: dropped}, nil
}
