// Package relevance selects the headlines that mention a held symbol.
//
// Matching is plain substring containment of the lower-cased root ticker in
// the lower-cased title. There is no word-boundary check, so a short root
// ticker can match inside unrelated words.
package relevance

import (
	"strings"

	"github.com/DeafMist/smart-portfolio/backend/internal/models"
)

// RootTicker returns the part of symbol before its first ".", e.g. "TCS" for "TCS.NS".
func RootTicker(symbol string) string {
	root, _, _ := strings.Cut(symbol, ".")
	return root
}

// Keywords derives one lower-case keyword per symbol. Symbols with an empty
// root are skipped since an empty keyword would match every title.
func Keywords(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		keyword := strings.ToLower(strings.TrimSpace(RootTicker(symbol)))
		if keyword == "" {
			continue
		}
		out = append(out, keyword)
	}
	return out
}

// Filter keeps the items whose title contains at least one keyword derived from symbols.
func Filter(items []models.NewsItem, symbols []string) []models.NewsItem {
	keywords := Keywords(symbols)
	out := make([]models.NewsItem, 0)
	if len(keywords) == 0 {
		return out
	}

	for _, item := range items {
		title := strings.ToLower(item.Title)
		for _, keyword := range keywords {
			if strings.Contains(title, keyword) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Mention counts how many headlines reference one held stock.
type Mention struct {
	Stock    string `json:"stock"`
	Mentions int    `json:"mentions"`
}

// Mentions counts, per root ticker, the items whose title contains it. The
// result follows the order of symbols and includes zero counts; symbols
// listed on several exchanges share one row.
func Mentions(items []models.NewsItem, symbols []string) []Mention {
	out := make([]Mention, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		root := RootTicker(symbol)
		keyword := strings.ToLower(strings.TrimSpace(root))
		if keyword == "" {
			continue
		}
		if _, dup := seen[keyword]; dup {
			continue
		}
		seen[keyword] = struct{}{}

		count := 0
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Title), keyword) {
				count++
			}
		}
		out = append(out, Mention{Stock: root, Mentions: count})
	}
	return out
}
