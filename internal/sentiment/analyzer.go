// Package sentiment classifies market headlines with a hosted language model.
package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/DeafMist/smart-portfolio/backend/internal/models"
)

// ErrEmptyHeadline is returned for blank input.
var ErrEmptyHeadline = errors.New("empty headline")

const promptTemplate = `You are an AI that analyzes a single Stock market news headline.

ONLY respond with a valid JSON object. Do NOT include any introduction, explanation, or markdown.

Respond strictly in the following format (and only this):

{
  "impact": "Positive" | "Neutral" | "Negative",
  "confidence": "High" | "Medium" | "Low",
  "reason": "One short sentence explaining your reasoning"
}

Headline: "%s"`

// Analyzer classifies one headline.
type Analyzer interface {
	Analyze(ctx context.Context, headline string) (models.SentimentAnalysis, error)
}

// Generator sends a prompt to a model and returns its raw text reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Default is returned when the model reply cannot be used.
func Default() models.SentimentAnalysis {
	return models.SentimentAnalysis{
		Impact:     models.ImpactNeutral,
		Confidence: "Low",
		Reason:     "Unable to parse model response correctly.",
	}
}

// ModelAnalyzer turns a Generator into an Analyzer. Unusable replies degrade
// to Default; only generator failures are reported as errors.
type ModelAnalyzer struct {
	gen Generator
}

func NewModelAnalyzer(gen Generator) *ModelAnalyzer {
	return &ModelAnalyzer{gen: gen}
}

// Prompt renders the classification prompt for headline.
func Prompt(headline string) string {
	return fmt.Sprintf(promptTemplate, headline)
}

func (a *ModelAnalyzer) Analyze(ctx context.Context, headline string) (models.SentimentAnalysis, error) {
	if strings.TrimSpace(headline) == "" {
		return models.SentimentAnalysis{}, ErrEmptyHeadline
	}

	reply, err := a.gen.Generate(ctx, Prompt(headline))
	if err != nil {
		return models.SentimentAnalysis{}, fmt.Errorf("generate: %w", err)
	}

	analysis, ok := parseReply(reply)
	if !ok {
		return Default(), nil
	}
	return analysis, nil
}

// rawAnalysis uses pointers so missing fields can be told apart from empty ones.
type rawAnalysis struct {
	Impact     *string `json:"impact"`
	Confidence *string `json:"confidence"`
	Reason     *string `json:"reason"`
}

func parseReply(reply string) (models.SentimentAnalysis, bool) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleanJSON(reply)), &raw); err != nil {
		return models.SentimentAnalysis{}, false
	}
	if raw.Impact == nil || raw.Confidence == nil || raw.Reason == nil {
		return models.SentimentAnalysis{}, false
	}
	impact := models.Impact(*raw.Impact)
	if !impact.Valid() {
		return models.SentimentAnalysis{}, false
	}
	return models.SentimentAnalysis{
		Impact:     impact,
		Confidence: *raw.Confidence,
		Reason:     *raw.Reason,
	}, true
}

// cleanJSON strips markdown fences and any prose around the outermost object.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
