// Package tokenizer turns raw text into canonical search terms.
//
// Input is NFC-normalized, every rune that is not a letter, number or
// combining mark acts as a separator, and tokens are case-folded with the
// locale independent Unicode fold. Tokens shorter than MinTermLength runes
// are dropped, so they never reach the index.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MinTermLength is the minimum term length in runes.
const MinTermLength = 2

// IsWordRune reports whether r is kept inside a term.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

// Tokenize returns the ordered terms of raw. Duplicates are kept.
func Tokenize(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	words := strings.FieldsFunc(norm.NFC.String(raw), func(r rune) bool { return !IsWordRune(r) })
	if len(words) == 0 {
		return nil
	}

	// Casers keep state and are not safe for concurrent use.
	fold := cases.Fold()
	out := make([]string, 0, len(words))
	for _, w := range words {
		t := norm.NFC.String(fold.String(w))
		if utf8.RuneCountInString(t) < MinTermLength {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Normalize folds a single word (a prefix, a config key) the same way
// Tokenize folds terms, removing separator runes. No length filter applies.
func Normalize(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	kept := strings.Map(func(r rune) rune {
		if IsWordRune(r) {
			return r
		}
		return -1
	}, norm.NFC.String(word))
	return norm.NFC.String(cases.Fold().String(kept))
}

// Unique returns terms with duplicates removed, keeping first occurrences.
func Unique(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Fold case-folds s as a whole, keeping separators. Used for sort keys.
func Fold(s string) string {
	return norm.NFC.String(cases.Fold().String(norm.NFC.String(s)))
}
