// Package processing prepares aggregated headlines for the archive.
package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	urlRegex    = regexp.MustCompile(`https?://[^\s]+`)
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// Headline filler plus words every market story carries.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "in": {}, "for": {}, "of": {}, "on": {},
	"and": {}, "or": {}, "at": {}, "by": {}, "as": {}, "is": {}, "are": {}, "was": {},
	"with": {}, "from": {}, "after": {}, "over": {}, "amid": {}, "into": {}, "its": {},
	"this": {}, "that": {}, "what": {}, "why": {}, "how": {}, "will": {}, "may": {},
	"says": {}, "said": {}, "here": {}, "news": {}, "today": {}, "stock": {}, "stocks": {},
	"share": {}, "shares": {}, "market": {}, "markets": {},
}

// CleanText unescapes HTML entities, drops URLs and punctuation and squeezes
// whitespace.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = urlRegex.ReplaceAllString(decoded, " ")
	decoded = punctuation.ReplaceAllString(decoded, " ")
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// ExtractKeywords returns up to limit most frequent words of at least minLen
// runes that are not stop-words. Ties are broken alphabetically.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(CleanText(text))
	if clean == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, token := range strings.Fields(clean) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if utf8.RuneCountInString(token) < minLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		freq[token]++
	}

	if len(freq) == 0 {
		return nil
	}

	type kv struct {
		word  string
		count int
	}

	pairs := make([]kv, 0, len(freq))
	for word, count := range freq {
		pairs = append(pairs, kv{word: word, count: count})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].count > pairs[j].count
	})

	n := limit
	if n <= 0 || n > len(pairs) {
		n = len(pairs)
	}

	keywords := make([]string, 0, n)
	for i := 0; i < n; i++ {
		keywords = append(keywords, pairs[i].word)
	}
	return keywords
}

// BuildDocumentID derives the archive ID from the article URL, so the same
// article published in several batches maps to one document.
func BuildDocumentID(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	s := sha1.Sum([]byte(strings.TrimRight(url, "/")))
	return hex.EncodeToString(s[:])
}
