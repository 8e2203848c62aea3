package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/DeafMist/smart-portfolio/backend/internal/models"
)

const (
	// DefaultMoneycontrolURL is the markets news listing page.
	DefaultMoneycontrolURL = "https://www.moneycontrol.com/news/business/markets/"
	// DefaultMoneycontrolBase resolves relative links found on the listing.
	DefaultMoneycontrolBase = "https://www.moneycontrol.com"

	listingSelector = "li.clearfix"
	minTitleLength  = 10
)

// Moneycontrol scrapes headlines from the Moneycontrol markets listing.
type Moneycontrol struct {
	pageURL string
	base    *url.URL
	limit   int
	client  *http.Client
	now     func() time.Time
}

// NewMoneycontrol builds the HTML fetcher. baseURL must be absolute.
func NewMoneycontrol(pageURL, baseURL string, limit int, client *http.Client) (*Moneycontrol, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url %q is not absolute", baseURL)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Moneycontrol{pageURL: pageURL, base: base, limit: limit, client: client, now: time.Now}, nil
}

// Name implements Fetcher.
func (f *Moneycontrol) Name() string { return models.SourceMoneycontrol }

// Fetch implements Fetcher. The page carries no per-item dates, so every item
// is stamped with the retrieval time.
func (f *Moneycontrol) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	var doc *goquery.Document
	err := get(ctx, f.client, f.pageURL, func(body io.Reader) error {
		parsed, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return fmt.Errorf("parse html: %w", err)
		}
		doc = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("moneycontrol: %w", err)
	}

	publishedAt := models.FormatTimestamp(f.now())
	seen := make(map[string]struct{})
	news := make([]models.NewsItem, 0, f.limit)

	doc.Find(listingSelector).EachWithBreak(func(_ int, li *goquery.Selection) bool {
		anchor := li.Find("a")
		title := strings.TrimSpace(anchor.Text())
		href, _ := anchor.Attr("href")

		link := f.resolve(strings.TrimSpace(href))
		if link == "" || utf8.RuneCountInString(title) <= minTitleLength {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		news = append(news, models.NewsItem{
			Title:       title,
			URL:         link,
			Source:      models.SourceMoneycontrol,
			PublishedAt: publishedAt,
		})
		return len(news) < f.limit
	})

	return news, nil
}

// resolve turns href into an absolute URL. It returns "" for unusable links.
func (f *Moneycontrol) resolve(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return f.base.ResolveReference(ref).String()
}
