// Package portfolio stores the set of stock symbols each user follows.
package portfolio

import (
	"errors"
	"slices"
	"strings"
)

// ErrInvalidSymbol is returned for symbols that are blank after trimming.
var ErrInvalidSymbol = errors.New("invalid symbol")

// Holdings is an ordered set of upper-cased symbols. Values are immutable:
// Add and Remove return new Holdings and leave the receiver untouched.
type Holdings struct {
	symbols []string
}

// NormalizeSymbol trims and upper-cases symbol.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", ErrInvalidSymbol
	}
	return s, nil
}

// NewHoldings builds a set from symbols, keeping first-seen order. Blank
// symbols are skipped.
func NewHoldings(symbols ...string) Holdings {
	var h Holdings
	for _, s := range symbols {
		norm, err := NormalizeSymbol(s)
		if err != nil || slices.Contains(h.symbols, norm) {
			continue
		}
		h.symbols = append(h.symbols, norm)
	}
	return h
}

// Add returns h with symbol appended, or h itself when already present.
func (h Holdings) Add(symbol string) (Holdings, error) {
	norm, err := NormalizeSymbol(symbol)
	if err != nil {
		return h, err
	}
	if slices.Contains(h.symbols, norm) {
		return h, nil
	}
	next := make([]string, len(h.symbols), len(h.symbols)+1)
	copy(next, h.symbols)
	return Holdings{symbols: append(next, norm)}, nil
}

// Remove returns h without symbol. Removing an absent symbol is a no-op.
func (h Holdings) Remove(symbol string) (Holdings, error) {
	norm, err := NormalizeSymbol(symbol)
	if err != nil {
		return h, err
	}
	idx := slices.Index(h.symbols, norm)
	if idx < 0 {
		return h, nil
	}
	return Holdings{symbols: slices.Delete(slices.Clone(h.symbols), idx, idx+1)}, nil
}

func (h Holdings) Contains(symbol string) bool {
	norm, err := NormalizeSymbol(symbol)
	return err == nil && slices.Contains(h.symbols, norm)
}

func (h Holdings) Len() int { return len(h.symbols) }

// Symbols returns a copy of the symbols in insertion order. It is never nil.
func (h Holdings) Symbols() []string {
	out := make([]string, len(h.symbols))
	copy(out, h.symbols)
	return out
}
