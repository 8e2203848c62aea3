// Package sources turns external news pages into models.NewsItem lists.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DeafMist/smart-portfolio/backend/internal/models"
)

// DefaultLimit caps the number of items a single source contributes.
const DefaultLimit = 10

const userAgent = "Mozilla/5.0 (compatible; smart-portfolio/1.0)"

// ErrUnexpectedStatus is returned when a source answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Fetcher retrieves one source's current headlines in document order.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]models.NewsItem, error)
}

// NewHTTPClient returns the client shared by the fetchers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// get performs a GET and hands the body to parse. The body is always closed.
func get(ctx context.Context, client *http.Client, url string, parse func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("get %s: %w: %s", url, ErrUnexpectedStatus, resp.Status)
	}

	return parse(resp.Body)
}
