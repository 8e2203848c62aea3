package dedupe

import (
	"slices"
	"unicode"
)

// Similarity returns Dice's coefficient over the character bigrams of a and b,
// in [0, 1]. Whitespace is ignored and bigrams are counted as a multiset, so a
// repeated pair only matches as many times as it occurs in both strings.
func Similarity(a, b string) float64 {
	first := stripSpace(a)
	second := stripSpace(b)

	if slices.Equal(first, second) {
		return 1
	}
	if len(first) < 2 || len(second) < 2 {
		return 0
	}

	counts := make(map[[2]rune]int, len(first)-1)
	for i := 0; i < len(first)-1; i++ {
		counts[[2]rune{first[i], first[i+1]}]++
	}

	shared := 0
	for i := 0; i < len(second)-1; i++ {
		bigram := [2]rune{second[i], second[i+1]}
		if counts[bigram] > 0 {
			counts[bigram]--
			shared++
		}
	}

	return 2 * float64(shared) / float64(len(first)+len(second)-2)
}

func stripSpace(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			out = append(out, r)
		}
	}
	return out
}
