// Package quotes reads prices, daily history and symbol search results from
// the Yahoo Finance public endpoints.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	DefaultTimeout = 10 * time.Second
	// DefaultExchangeSuffix is appended to bare symbols.
	DefaultExchangeSuffix = ".NS"

	chartPath  = "/v8/finance/chart/{symbol}"
	searchPath = "/v1/finance/search"
	userAgent  = "Mozilla/5.0 (compatible; smart-portfolio/1.0)"
)

var (
	// ErrNotFound is returned when the provider does not know the symbol.
	ErrNotFound = errors.New("symbol not found")
	// ErrNoData is returned when a symbol exists but has no prices in range.
	ErrNoData = errors.New("no data")
)

// DefaultSymbol appends the NSE suffix to symbols without an exchange.
func DefaultSymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + DefaultExchangeSuffix
}

// DefaultStart is the history start used when the caller gives none: one
// month before now, at midnight UTC.
func DefaultStart(now time.Time) time.Time {
	y, m, d := now.UTC().AddDate(0, -1, 0).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Client talks to the quote provider.
type Client struct {
	http *resty.Client
	now  func() time.Time
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	return &Client{http: rc, now: time.Now}
}

// Quote returns the latest price for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	res, err := c.chart(ctx, symbol, map[string]string{"range": "1d", "interval": "1d"})
	if err != nil {
		return nil, err
	}
	return adaptChartQuote(res), nil
}

// History returns daily closes since start keyed by YYYY-MM-DD.
func (c *Client) History(ctx context.Context, symbol string, start time.Time) (map[string]HistoryPoint, error) {
	res, err := c.chart(ctx, symbol, map[string]string{
		"period1":  strconv.FormatInt(start.Unix(), 10),
		"period2":  strconv.FormatInt(c.now().Unix(), 10),
		"interval": "1d",
	})
	if err != nil {
		return nil, err
	}
	points := adaptChartHistory(res)
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return points, nil
}

// Search returns NSE and BSE listings matching query.
func (c *Client) Search(ctx context.Context, query string) ([]SearchMatch, error) {
	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": query, "quotesCount": "10", "newsCount": "0"}).
		SetResult(&out).
		Get(searchPath)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search %q: status %d", query, resp.StatusCode())
	}
	return adaptSearch(out), nil
}

func (c *Client) chart(ctx context.Context, symbol string, params map[string]string) (*chartResult, error) {
	var out chartResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(params).
		SetResult(&out).
		SetError(&out).
		Get(chartPath)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("chart %s: %w", symbol, ErrNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chart %s: status %d", symbol, resp.StatusCode())
	}
	if len(out.Chart.Result) == 0 {
		if out.Chart.Error != nil {
			return nil, fmt.Errorf("chart %s: %s: %w", symbol, out.Chart.Error.Description, ErrNotFound)
		}
		return nil, fmt.Errorf("chart %s: %w", symbol, ErrNoData)
	}
	return &out.Chart.Result[0], nil
}
