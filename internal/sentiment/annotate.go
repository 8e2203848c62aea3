package sentiment

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/DeafMist/smart-portfolio/backend/internal/models"
)

// Annotation holds per-item outcomes keyed by item URL. A URL appears in at
// most one of the two maps.
type Annotation struct {
	Insights map[string]models.SentimentAnalysis
	Errors   map[string]error
}

// Annotate analyzes every item's title. Failures are recorded per item and
// never stop the remaining calls. With concurrency <= 1 items are analyzed
// one after another in order.
func Annotate(ctx context.Context, analyzer Analyzer, items []models.NewsItem, concurrency int) Annotation {
	out := Annotation{
		Insights: make(map[string]models.SentimentAnalysis, len(items)),
		Errors:   make(map[string]error),
	}

	if concurrency <= 1 {
		for _, item := range items {
			analysis, err := analyzer.Analyze(ctx, item.Title)
			out.record(item.URL, analysis, err)
		}
		return out
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(concurrency)
	for _, item := range items {
		p.Go(func() {
			analysis, err := analyzer.Analyze(ctx, item.Title)
			mu.Lock()
			out.record(item.URL, analysis, err)
			mu.Unlock()
		})
	}
	p.Wait()
	return out
}

func (a Annotation) record(url string, analysis models.SentimentAnalysis, err error) {
	if err != nil {
		a.Errors[url] = err
		return
	}
	a.Insights[url] = analysis
}
