package search

import (
	"context"
	"testing"

	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/entity/field"
	"github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/domain/search/filter"
	"github.com/huntkil/lexis/internal/domain/search/order"
	"github.com/huntkil/lexis/internal/domain/search/request"
	"github.com/huntkil/lexis/internal/domain/search/result"
	"github.com/huntkil/lexis/internal/index"
)

// mockRecords implements Records for tests.
type mockRecords struct {
	loadFn func(ctx context.Context, et entity.Type, ids []int64) (map[int64]record.Record, error)
	calls  int
}

func (m *mockRecords) Load(ctx context.Context, et entity.Type, ids []int64) (map[int64]record.Record, error) {
	m.calls++
	if m.loadFn != nil {
		return m.loadFn(ctx, et, ids)
	}
	return map[int64]record.Record{}, nil
}

// staticRecords serves a fixed table of records per type.
func staticRecords(byType map[string]map[int64]record.Record) *mockRecords {
	return &mockRecords{
		loadFn: func(_ context.Context, et entity.Type, ids []int64) (map[int64]record.Record, error) {
			out := make(map[int64]record.Record)
			for _, id := range ids {
				if r, ok := byType[et.Name()][id]; ok {
					out[id] = r
				}
			}
			return out, nil
		},
	}
}

func mustType(t *testing.T, name string, filterable []string, opts ...entity.Option) entity.Type {
	t.Helper()
	et, err := entity.New(name, "", []field.Field{field.Reconstruct("body", 1)}, filterable, opts...)
	if err != nil {
		t.Fatalf("entity.New: %v", err)
	}
	return et
}

func newRegistry(t *testing.T, types ...entity.Type) *index.Registry {
	t.Helper()
	reg := index.NewRegistry(index.DefaultParams())
	for _, et := range types {
		if _, err := reg.Register(et); err != nil {
			t.Fatalf("Register(%s): %v", et.Name(), err)
		}
	}
	return reg
}

func write(t *testing.T, reg *index.Registry, typ string, id int64, body string) {
	t.Helper()
	ix, err := reg.Route(typ)
	if err != nil {
		t.Fatalf("Route(%s): %v", typ, err)
	}
	if err := ix.OnWrite(context.Background(), id, map[string]string{"body": body}); err != nil {
		t.Fatalf("OnWrite: %v", err)
	}
}

type reqOpts struct {
	types     []string
	filters   filter.Set
	order     order.Order
	limit     int
	offset    int
	highlight bool
}

func mustRequest(t *testing.T, q string, o reqOpts) request.Request {
	t.Helper()
	if o.order == "" {
		o.order = order.Relevance
	}
	r, err := request.New(q, o.types, o.filters, o.order, o.limit, o.offset, o.highlight, request.Limits{})
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return r
}

func pageIDs(p result.Page) []int64 {
	out := make([]int64, 0, len(p.Results()))
	for _, r := range p.Results() {
		out = append(out, r.ID())
	}
	return out
}
