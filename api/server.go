package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/DeafMist/smart-portfolio/backend/internal/aggregate"
	"github.com/DeafMist/smart-portfolio/backend/internal/elasticsearch"
	"github.com/DeafMist/smart-portfolio/backend/internal/metrics"
	"github.com/DeafMist/smart-portfolio/backend/internal/models"
	"github.com/DeafMist/smart-portfolio/backend/internal/portfolio"
	"github.com/DeafMist/smart-portfolio/backend/internal/quotes"
	"github.com/DeafMist/smart-portfolio/backend/internal/sentiment"
)

const maxBodyBytes = 1 << 16

type newsAggregator interface {
	Aggregate(ctx context.Context) (*aggregate.Result, error)
}

type batchPublisher interface {
	PublishBatch(ctx context.Context, items []models.NewsItem) (string, error)
}

type quoteProvider interface {
	Quote(ctx context.Context, symbol string) (*quotes.Quote, error)
	History(ctx context.Context, symbol string, start time.Time) (map[string]quotes.HistoryPoint, error)
	Search(ctx context.Context, query string) ([]quotes.SearchMatch, error)
}

type archiveSearcher interface {
	SearchNews(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
}

// server holds the handler dependencies. analyzer, publisher and archive are
// optional; nil disables the feature.
type server struct {
	log         *slog.Logger
	metrics     *metrics.Metrics
	validate    *validator.Validate
	aggregator  newsAggregator
	newsTimeout time.Duration
	analyzer    sentiment.Analyzer
	concurrency int
	store       portfolio.Store
	quotes      quoteProvider
	publisher   batchPublisher
	archive     archiveSearcher
	defaultPage int
	maxPage     int
	now         func() time.Time

	publishing sync.WaitGroup
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) routes(authenticate func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/news", s.handleNews)
		r.Post("/sentiment", s.handleSentiment)

		r.Route("/stocks", func(r chi.Router) {
			r.Get("/quote", s.handleQuote)
			r.Get("/timeseries", s.handleTimeseries)
			r.Get("/search", s.handleSearch)
		})

		if s.archive != nil {
			r.Get("/news/archive", s.handleArchive)
		}

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/news/filtered", s.handleFilteredNews)
			r.Get("/portfolio", s.handleGetPortfolio)
			r.Post("/portfolio", s.handleAddPortfolio)
			r.Delete("/portfolio", s.handleRemovePortfolio)
		})
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody reads a JSON body into dst, trims its string fields through
// normalize and runs struct validation.
func (s *server) decodeBody(r *http.Request, dst any, normalize func()) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if normalize != nil {
		normalize()
	}
	return s.validate.Struct(dst)
}

// wait blocks until background publishes finish.
func (s *server) wait() {
	s.publishing.Wait()
}

// publish sends items to the event stream without delaying the response.
func (s *server) publish(ctx context.Context, items []models.NewsItem) {
	if s.publisher == nil || len(items) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := s.publisher.PublishBatch(ctx, items); err != nil {
			s.log.Warn("publish aggregated batch", slog.Any("err", err))
		}
	}()
}

func (s *server) aggregateNews(ctx context.Context) ([]models.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.newsTimeout)
	defer cancel()

	started := time.Now()
	res, err := s.aggregator.Aggregate(ctx)
	if err != nil {
		s.metrics.ObserveAggregation(time.Since(started), 0, err)
		return nil, err
	}
	s.metrics.ObserveAggregation(time.Since(started), res.Dropped, nil)
	s.log.Info("news aggregated",
		slog.Int("fetched", res.Fetched),
		slog.Int("dropped", res.Dropped),
		slog.Int("items", len(res.Items)),
		slog.Duration("took", time.Since(started)),
	)
	s.publish(ctx, res.Items)
	return res.Items, nil
}

// isValidationError reports whether the body was JSON whose fields were
// missing, of the wrong type or out of bounds.
func isValidationError(err error) bool {
	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &verrs) || errors.As(err, &typeErr)
}

// badRequest reports a decodeBody failure: invalid for a body that failed
// validation, a generic message for one that is not JSON at all.
func badRequest(w http.ResponseWriter, err error, invalid string) {
	msg := invalid
	if !isValidationError(err) {
		msg = "Invalid JSON body"
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
