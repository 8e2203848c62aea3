package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DeafMist/smart-portfolio/backend/internal/auth"
	"github.com/DeafMist/smart-portfolio/backend/internal/elasticsearch"
	"github.com/DeafMist/smart-portfolio/backend/internal/models"
	"github.com/DeafMist/smart-portfolio/backend/internal/relevance"
	"github.com/DeafMist/smart-portfolio/backend/internal/sentiment"
)

type filteredNewsResponse struct {
	Items    []models.NewsItem                   `json:"items"`
	Insights map[string]models.SentimentAnalysis `json:"insights"`
	Errors   map[string]string                   `json:"errors"`
	Mentions []relevance.Mention                 `json:"mentions"`
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	items, err := s.aggregateNews(r.Context())
	if err != nil {
		s.log.Error("aggregate news", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Scraping failed"})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleFilteredNews aggregates, keeps the items mentioning the caller's
// holdings and annotates them with sentiment.
func (s *server) handleFilteredNews(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())

	holdings, err := s.store.Get(r.Context(), claims.Email)
	if err != nil {
		s.log.Error("load portfolio", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load portfolio"})
		return
	}

	resp := filteredNewsResponse{
		Items:    []models.NewsItem{},
		Insights: map[string]models.SentimentAnalysis{},
		Errors:   map[string]string{},
		Mentions: []relevance.Mention{},
	}
	symbols := holdings.Symbols()
	if len(symbols) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	items, err := s.aggregateNews(r.Context())
	if err != nil {
		s.log.Error("aggregate news", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Scraping failed"})
		return
	}

	resp.Items = relevance.Filter(items, symbols)
	resp.Mentions = relevance.Mentions(resp.Items, symbols)

	if s.analyzer != nil && len(resp.Items) > 0 {
		annotation := sentiment.Annotate(r.Context(), s.analyzer, resp.Items, s.concurrency)
		resp.Insights = annotation.Insights
		for url, err := range annotation.Errors {
			s.log.Warn("sentiment failed", slog.String("url", url), slog.Any("err", err))
			resp.Errors[url] = err.Error()
		}
		s.metrics.ObserveSentiment(len(annotation.Insights), len(annotation.Errors))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:    strings.TrimSpace(q.Get("q")),
		Keywords: parseCSV(q.Get("keywords")),
		Source:   strings.TrimSpace(q.Get("source")),
		From:     clampInt(q.Get("from"), 0, 10_000),
		Size:     clampInt(q.Get("size"), s.defaultPage, s.maxPage),
		Sort:     strings.TrimSpace(q.Get("sort")),
		Start:    parseTime(q.Get("start")),
		End:      parseTime(q.Get("end")),
	}

	result, err := s.archive.SearchNews(ctx, params)
	if err != nil {
		s.log.Error("search archive", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Archive search failed"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
