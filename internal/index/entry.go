package index

import (
	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/text/tokenizer"
)

// Entry is the indexed form of one document. It is built from the
// configured fields only and never mutated once built.
type Entry struct {
	docID  int64
	fields map[string]string
	// weighted term frequency: sum over fields of weight * occurrences
	wtf    map[string]float64
	length int
}

func newEntry(cfg entity.Type, docID int64, values map[string]string) *Entry {
	e := &Entry{
		docID:  docID,
		fields: make(map[string]string, len(cfg.Fields())),
		wtf:    make(map[string]float64),
	}
	for _, f := range cfg.Fields() {
		text, ok := values[f.Name()]
		if !ok {
			continue
		}
		e.fields[f.Name()] = text
		tokens := tokenizer.Tokenize(text)
		for _, t := range tokens {
			e.wtf[t] += f.Weight()
		}
		e.length += len(tokens)
	}
	return e
}

// DocID returns the document id.
func (e *Entry) DocID() int64 { return e.docID }

// Fields returns a copy of the indexed field text.
func (e *Entry) Fields() map[string]string {
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// Length returns the number of indexed tokens across all fields.
func (e *Entry) Length() int { return e.length }

// Terms returns the number of distinct terms in the entry.
func (e *Entry) Terms() int { return len(e.wtf) }

func (e *Entry) equal(o *Entry) bool {
	if o == nil || e.docID != o.docID || e.length != o.length || len(e.fields) != len(o.fields) {
		return false
	}
	for k, v := range e.fields {
		if o.fields[k] != v {
			return false
		}
	}
	return true
}
