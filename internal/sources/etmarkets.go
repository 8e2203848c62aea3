package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/DeafMist/smart-portfolio/backend/internal/models"
)

// DefaultETMarketsFeed is the ETMarkets markets RSS feed.
const DefaultETMarketsFeed = "https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms"

// ETMarkets reads headlines from the ETMarkets RSS feed.
type ETMarkets struct {
	feedURL string
	limit   int
	client  *http.Client
	now     func() time.Time
}

// NewETMarkets builds a feed fetcher. A non-positive limit falls back to DefaultLimit.
func NewETMarkets(feedURL string, limit int, client *http.Client) *ETMarkets {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ETMarkets{feedURL: feedURL, limit: limit, client: client, now: time.Now}
}

// Name implements Fetcher.
func (f *ETMarkets) Name() string { return models.SourceETMarkets }

// Fetch implements Fetcher. Only the first limit feed entries are considered;
// entries missing a title or link are dropped.
func (f *ETMarkets) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	var feed *gofeed.Feed
	err := get(ctx, f.client, f.feedURL, func(body io.Reader) error {
		parsed, err := gofeed.NewParser().Parse(body)
		if err != nil {
			return fmt.Errorf("parse feed: %w", err)
		}
		feed = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("etmarkets: %w", err)
	}

	entries := feed.Items
	if len(entries) > f.limit {
		entries = entries[:f.limit]
	}

	retrievedAt := f.now()
	news := make([]models.NewsItem, 0, len(entries))
	for _, entry := range entries {
		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" || link == "" {
			continue
		}

		published := retrievedAt
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		news = append(news, models.NewsItem{
			Title:       title,
			URL:         link,
			Source:      models.SourceETMarkets,
			PublishedAt: models.FormatTimestamp(published),
		})
	}

	return news, nil
}
