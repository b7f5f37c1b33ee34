package index

import (
	"errors"
	"testing"

	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/entity/field"
)

func testType(t *testing.T, name string, fields ...field.Field) entity.Type {
	t.Helper()
	if len(fields) == 0 {
		fields = []field.Field{field.Reconstruct("body", 1)}
	}
	et, err := entity.New(name, "", fields, []string{"lang"})
	if err != nil {
		t.Fatalf("entity.New: %v", err)
	}
	return et
}

func newTestIndex(t *testing.T, fields ...field.Field) *EntityIndex {
	t.Helper()
	return New(testType(t, "note", fields...), DefaultParams())
}

func ids(hits []Hit) []int64 {
	out := make([]int64, len(hits))
	for i, h := range hits {
		out[i] = h.DocID
	}
	return out
}

func scoreOf(hits []Hit, id int64) (float64, bool) {
	for _, h := range hits {
		if h.DocID == id {
			return h.Score, true
		}
	}
	return 0, false
}

// faultyIterator yields rows then fails before exhausting them.
type faultyIterator struct {
	rows   []Row
	failAt int
	pos    int
	err    error
	closed bool
}

var errScanFault = errors.New("connection reset")

func (it *faultyIterator) Next() bool {
	if it.pos == it.failAt {
		it.err = errScanFault
		return false
	}
	if it.pos >= len(it.rows) {
		return false
	}
	it.pos++
	return true
}

func (it *faultyIterator) Row() Row     { return it.rows[it.pos-1] }
func (it *faultyIterator) Err() error   { return it.err }
func (it *faultyIterator) Close() error { it.closed = true; return nil }
