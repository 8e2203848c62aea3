package models

import "time"

// Source labels emitted by the news fetchers.
const (
	SourceETMarkets    = "ETMarkets"
	SourceMoneycontrol = "Moneycontrol"
)

// TimestampLayout is the normalized, sortable form of NewsItem.PublishedAt.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// NewsItem is a single headline normalized from one of the news sources.
// Items are passed by value and never modified after construction.
type NewsItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
}

// FormatTimestamp renders t in the normalized PublishedAt form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp. It also accepts plain RFC 3339.
func ParseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(TimestampLayout, raw); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// Impact is the direction a headline is expected to move the market.
type Impact string

const (
	ImpactPositive Impact = "Positive"
	ImpactNeutral  Impact = "Neutral"
	ImpactNegative Impact = "Negative"
)

// Valid reports whether i is one of the known impact values.
func (i Impact) Valid() bool {
	switch i {
	case ImpactPositive, ImpactNeutral, ImpactNegative:
		return true
	}
	return false
}

// SentimentAnalysis is the model's classification of one headline. It is kept
// in a side map keyed by NewsItem.URL and is never embedded into the item.
type SentimentAnalysis struct {
	Impact     Impact `json:"impact"`
	Confidence string `json:"confidence"`
	Reason     string `json:"reason"`
}

// AggregatedBatch is published to the event stream after each successful aggregation.
type AggregatedBatch struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []NewsItem `json:"items"`
}

// ArchivedNews is the document stored in the news archive index.
type ArchivedNews struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	ArchivedAt  time.Time `json:"archived_at"`
	Keywords    []string  `json:"keywords"`
	BatchID     string    `json:"batch_id"`
}
