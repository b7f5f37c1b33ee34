package synonym

import (
	"sort"

	"github.com/huntkil/lexis/internal/text/tokenizer"
)

// Expander adds configured equivalents to a term set. One level only:
// synonyms of synonyms are not followed.
type Expander struct {
	table map[string][]string
}

// New builds an Expander from canonical term -> equivalents. Keys and values
// are normalized like query terms; multi-word equivalents contribute every
// token. Keys that normalize to the same term are merged in sorted key order.
func New(config map[string][]string) *Expander {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := make(map[string][]string, len(config))
	for _, k := range keys {
		canon := tokenizer.Normalize(k)
		if canon == "" {
			continue
		}
		for _, v := range config[k] {
			for _, t := range tokenizer.Tokenize(v) {
				if t != canon {
					table[canon] = append(table[canon], t)
				}
			}
		}
	}
	for k, v := range table {
		table[k] = tokenizer.Unique(v)
	}
	return &Expander{table: table}
}

// Expand returns terms followed by the synonyms of every term that has an
// entry, de-duplicated with first occurrence kept. A nil Expander only
// de-duplicates.
func (e *Expander) Expand(terms []string) []string {
	out := make([]string, 0, len(terms))
	out = append(out, terms...)
	if e != nil {
		for _, t := range terms {
			out = append(out, e.table[t]...)
		}
	}
	return tokenizer.Unique(out)
}

// Synonyms returns the equivalents configured for one normalized term.
func (e *Expander) Synonyms(term string) []string {
	if e == nil {
		return nil
	}
	return e.table[term]
}

// Len returns the number of canonical terms.
func (e *Expander) Len() int {
	if e == nil {
		return 0
	}
	return len(e.table)
}
