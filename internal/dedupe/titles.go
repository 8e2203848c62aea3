package dedupe

import (
	"strings"

	"github.com/DeafMist/smart-portfolio/backend/internal/models"
)

// DefaultThreshold is the similarity above which two titles describe the same story.
const DefaultThreshold = 0.8

// Titles drops every item whose title duplicates an earlier accepted one,
// either exactly (case-folded, trimmed) or with a Similarity strictly greater
// than threshold. The first item of a duplicate cluster is kept and the input
// order is preserved. Each candidate is compared against every accepted item,
// so the cost is quadratic; it is meant for a few dozen headlines per request.
func Titles(items []models.NewsItem, threshold float64) []models.NewsItem {
	unique := make([]models.NewsItem, 0, len(items))
	keys := make([]string, 0, len(items))

	for _, item := range items {
		key := titleKey(item.Title)
		if isDuplicate(item.Title, key, unique, keys, threshold) {
			continue
		}
		unique = append(unique, item)
		keys = append(keys, key)
	}

	return unique
}

func isDuplicate(title, key string, accepted []models.NewsItem, keys []string, threshold float64) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	for _, prev := range accepted {
		if Similarity(prev.Title, title) > threshold {
			return true
		}
	}
	return false
}

func titleKey(title string) string {
	return strings.TrimSpace(strings.ToLower(title))
}
