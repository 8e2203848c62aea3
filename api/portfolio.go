package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DeafMist/smart-portfolio/backend/internal/auth"
	"github.com/DeafMist/smart-portfolio/backend/internal/portfolio"
)

type symbolRequest struct {
	Symbol string `json:"symbol" validate:"required,max=32"`
}

func (s *server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())

	holdings, err := s.store.Get(r.Context(), claims.Email)
	if err != nil {
		s.log.Error("load portfolio", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load portfolio"})
		return
	}
	writeJSON(w, http.StatusOK, holdings.Symbols())
}

func (s *server) handleAddPortfolio(w http.ResponseWriter, r *http.Request) {
	s.changePortfolio(w, r, s.store.Add, "Failed to add stock")
}

func (s *server) handleRemovePortfolio(w http.ResponseWriter, r *http.Request) {
	s.changePortfolio(w, r, s.store.Remove, "Failed to remove stock")
}

type portfolioChange func(ctx context.Context, owner, symbol string) (portfolio.Holdings, error)

func (s *server) changePortfolio(w http.ResponseWriter, r *http.Request, change portfolioChange, failure string) {
	claims, _ := auth.FromContext(r.Context())

	var req symbolRequest
	if err := s.decodeBody(r, &req, func() { req.Symbol = strings.TrimSpace(req.Symbol) }); err != nil {
		badRequest(w, err, "Missing symbol")
		return
	}

	holdings, err := change(r.Context(), claims.Email, req.Symbol)
	if errors.Is(err, portfolio.ErrInvalidSymbol) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing symbol"})
		return
	}
	if err != nil {
		s.log.Error("update portfolio", slog.String("symbol", req.Symbol), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: failure})
		return
	}
	writeJSON(w, http.StatusOK, holdings.Symbols())
}
