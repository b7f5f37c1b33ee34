// Package highlight marks query terms inside field text.
package highlight

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/huntkil/lexis/internal/text/tokenizer"
)

// Default markers.
const (
	DefaultPre  = "<mark>"
	DefaultPost = "</mark>"
)

// Highlighter wraps whole words matching a query term in pre/post markers.
type Highlighter struct {
	pre  string
	post string
}

// New creates a Highlighter. Empty markers fall back to the defaults.
func New(pre, post string) Highlighter {
	if pre == "" {
		pre = DefaultPre
	}
	if post == "" {
		post = DefaultPost
	}
	return Highlighter{pre: pre, post: post}
}

type span struct {
	start, end int
}

// Highlight returns text with every word whose normalized form equals one of
// terms wrapped in markers. Words are the runs of word runes the tokenizer
// indexes, walked by grapheme cluster so a combining mark never leaves its
// base. A term never matches inside a longer word, and each word is marked
// at most once.
func (h Highlighter) Highlight(text string, terms []string) string {
	if text == "" || len(terms) == 0 {
		return text
	}
	want := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		want[t] = struct{}{}
	}

	var spans []span
	for _, w := range words(text) {
		if _, ok := want[tokenizer.Normalize(text[w.start:w.end])]; ok {
			spans = append(spans, w)
		}
	}
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(h.pre)+len(h.post)))
	pos := 0
	for _, sp := range spans {
		b.WriteString(text[pos:sp.start])
		b.WriteString(h.pre)
		b.WriteString(text[sp.start:sp.end])
		b.WriteString(h.post)
		pos = sp.end
	}
	b.WriteString(text[pos:])
	return b.String()
}

// Fields highlights every value of fields and returns a new map.
func (h Highlighter) Fields(fields map[string]string, terms []string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = h.Highlight(v, terms)
	}
	return out
}

// words returns the byte spans of the maximal runs of word graphemes in text.
// A grapheme belongs to a word when its base rune is a word rune.
func words(text string) []span {
	var out []span
	state := -1
	pos := 0
	inWord := false
	rest := text
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		base, _ := utf8.DecodeRuneInString(cluster)
		isWord := tokenizer.IsWordRune(base)
		switch {
		case isWord && !inWord:
			out = append(out, span{start: pos})
		case !isWord && inWord:
			out[len(out)-1].end = pos
		}
		inWord = isWord
		pos += len(cluster)
	}
	if inWord {
		out[len(out)-1].end = pos
	}
	return out
}
