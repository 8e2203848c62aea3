package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DeafMist/smart-portfolio/backend/internal/quotes"
)

const quoteTimeout = 10 * time.Second

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := quotes.DefaultSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Symbol required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), quoteTimeout)
	defer cancel()

	quote, err := s.quotes.Quote(ctx, symbol)
	if errors.Is(err, quotes.ErrNotFound) || errors.Is(err, quotes.ErrNoData) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Quote not found"})
		return
	}
	if err != nil {
		s.log.Error("fetch quote", slog.String("symbol", symbol), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch quote"})
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *server) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	symbol := quotes.DefaultSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Symbol required"})
		return
	}

	start := quotes.DefaultStart(s.now())
	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "start must be YYYY-MM-DD"})
			return
		}
		start = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), quoteTimeout)
	defer cancel()

	history, err := s.quotes.History(ctx, symbol, start)
	if errors.Is(err, quotes.ErrNoData) || errors.Is(err, quotes.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No historical data found"})
		return
	}
	if err != nil {
		s.log.Error("fetch history", slog.String("symbol", symbol), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch historical data"})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Query required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), quoteTimeout)
	defer cancel()

	matches, err := s.quotes.Search(ctx, query)
	if err != nil {
		s.log.Error("search symbols", slog.String("q", query), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Search failed"})
		return
	}
	writeJSON(w, http.StatusOK, matches)
}
