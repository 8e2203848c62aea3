package main

import (
	"log/slog"
	"net/http"
	"strings"
)

type sentimentRequest struct {
	Headline string `json:"headline" validate:"required,max=1000"`
}

func (s *server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	var req sentimentRequest
	if err := s.decodeBody(r, &req, func() { req.Headline = strings.TrimSpace(req.Headline) }); err != nil {
		badRequest(w, err, "Missing or invalid headline")
		return
	}
	if s.analyzer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Sentiment analysis is not configured"})
		return
	}

	analysis, err := s.analyzer.Analyze(r.Context(), req.Headline)
	if err != nil {
		s.log.Error("sentiment call failed", slog.Any("err", err))
		s.metrics.ObserveSentiment(0, 1)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Sentiment API error"})
		return
	}
	s.metrics.ObserveSentiment(1, 0)
	writeJSON(w, http.StatusOK, analysis)
}
