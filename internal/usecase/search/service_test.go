package search

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/domain/search/filter"
	"github.com/huntkil/lexis/internal/domain/search/order"
	"github.com/huntkil/lexis/internal/text/highlight"
	"github.com/huntkil/lexis/internal/text/synonym"
)

func TestSearch_RelevanceRanking(t *testing.T) {
	reg := newRegistry(t, mustType(t, "note", nil))
	write(t, reg, "note", 1, "the quick brown fox")
	write(t, reg, "note", 2, "quick quick fox fox fox")

	page, err := New(reg, nil).Search(context.Background(), mustRequest(t, "quick fox", reqOpts{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := pageIDs(page); !reflect.DeepEqual(got, []int64{2, 1}) {
		t.Errorf("ids = %v, want [2 1]", got)
	}
	if page.Total() != 2 || page.HasMore() {
		t.Errorf("total = %d hasMore = %v", page.Total(), page.HasMore())
	}
}

func TestSearch_Synonyms(t *testing.T) {
	reg := newRegistry(t, mustType(t, "note", nil))
	write(t, reg, "note", 1, "hello world")

	svc := New(reg, nil, WithSynonyms(synonym.New(map[string][]string{"hi": {"hello"}})))
	page, err := svc.Search(context.Background(), mustRequest(t, "hi", reqOpts{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := pageIDs(page); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("ids = %v, want [1]", got)
	}
}

func TestSearch_EmptyTermsSkipIndexes(t *testing.T) {
	recs := &mockRecords{}
	svc := New(newRegistry(t, mustType(t, "note", nil)), recs)
	for _, q := range []string{"", "  ", "a ! ?"} {
		page, err := svc.Search(context.Background(), mustRequest(t, q, reqOpts{types: []string{"note"}}))
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if page.Total() != 0 || len(page.Results()) != 0 {
			t.Errorf("Search(%q) = %+v, want empty", q, page)
		}
	}
	if recs.calls != 0 {
		t.Errorf("records loaded %d times", recs.calls)
	}
}

func TestSearch_EmptyTermsStillValidated(t *testing.T) {
	reg := newRegistry(t, mustType(t, "note", []string{"lang"}))
	svc := New(reg, nil)
	bad, _ := filter.NewSet(map[string][]filter.Condition{"note": {mustCond(t, "zzz", "x")}})
	outside, _ := filter.NewSet(map[string][]filter.Condition{"word": {mustCond(t, "lang", "en")}})

	tests := []struct {
		name string
		opts reqOpts
		want error
	}{
		{"unknown type", reqOpts{types: []string{"nope"}}, domain.ErrUnknownEntityType},
		{"not filterable", reqOpts{filters: bad}, domain.ErrInvalidQuery},
		{"filter outside targets", reqOpts{types: []string{"note"}, filters: outside}, domain.ErrInvalidQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, q := range []string{"!!", "hello"} {
				_, err := svc.Search(context.Background(), mustRequest(t, q, tt.opts))
				if !errors.Is(err, tt.want) {
					t.Errorf("Search(%q) error = %v, want %v", q, err, tt.want)
				}
			}
		})
	}
}

func TestSearch_UnknownType(t *testing.T) {
	reg := newRegistry(t, mustType(t, "note", nil))
	_, err := New(reg, nil).Search(context.Background(), mustRequest(t, "fox", reqOpts{types: []string{"ghost"}}))
	if !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Errorf("error = %v, want ErrUnknownEntityType", err)
	}
}

func TestSearch_FilterValidation(t *testing.T) {
	reg := newRegistry(t, mustType(t, "word", []string{"lang"}), mustType(t, "user", nil))
	write(t, reg, "word", 1, "fox")
	recs := &mockRecords{}
	svc := New(reg, recs)

	lang, _ := filter.New("lang", "en")
	tests := []struct {
		name    string
		types   []string
		filters map[string][]filter.Condition
	}{
		{"undeclared attribute", nil, map[string][]filter.Condition{"user": {lang}}},
		{"type outside targets", []string{"user"}, map[string][]filter.Condition{"word": {lang}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := filter.NewSet(tt.filters)
			if err != nil {
				t.Fatalf("NewSet: %v", err)
			}
			_, err = svc.Search(context.Background(), mustRequest(t, "fox", reqOpts{types: tt.types, filters: set}))
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Errorf("error = %v, want ErrInvalidQuery", err)
			}
		})
	}
	if recs.calls != 0 {
		t.Error("records must not be loaded for an invalid query")
	}
}

func TestSearch_FiltersOnLiveAttributes(t *testing.T) {
	reg := newRegistry(t, mustType(t, "word", []string{"lang", "tags"}))
	write(t, reg, "word", 1, "apple pie")
	write(t, reg, "word", 2, "apple tart")
	write(t, reg, "word", 3, "apple cake")
	recs := staticRecords(map[string]map[int64]record.Record{"word": {
		1: record.Reconstruct(1, map[string]string{"lang": "en"}, map[string][]string{"tags": {"food", "sweet"}}),
		2: record.Reconstruct(2, map[string]string{"lang": "de"}, map[string][]string{"tags": {"sweet"}}),
		3: record.Reconstruct(3, map[string]string{"lang": "fr"}, nil),
	}})
	svc := New(reg, recs)

	tests := []struct {
		name  string
		conds func() []filter.Condition
		want  []int64
	}{
		{"equality", func() []filter.Condition {
			c, _ := filter.New("lang", "en")
			return []filter.Condition{c}
		}, []int64{1}},
		{"membership", func() []filter.Condition {
			c, _ := filter.New("lang", "en", "de")
			return []filter.Condition{c}
		}, []int64{1, 2}},
		{"list any element", func() []filter.Condition {
			c, _ := filter.New("tags", "sweet")
			return []filter.Condition{c}
		}, []int64{1, 2}},
		{"conjunction", func() []filter.Condition {
			a, _ := filter.New("tags", "sweet")
			b, _ := filter.New("lang", "de")
			return []filter.Condition{a, b}
		}, []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, _ := filter.NewSet(map[string][]filter.Condition{"word": tt.conds()})
			page, err := svc.Search(context.Background(), mustRequest(t, "apple", reqOpts{filters: set}))
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			got := pageIDs(page)
			// equal scores: ties break on id
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearch_SkipsRecordsMissingFromStore(t *testing.T) {
	reg := newRegistry(t, mustType(t, "word", []string{"lang"}))
	write(t, reg, "word", 1, "apple")
	write(t, reg, "word", 2, "apple")
	recs := staticRecords(map[string]map[int64]record.Record{"word": {
		1: record.Reconstruct(1, map[string]string{"lang": "en"}, nil),
	}})
	set, _ := filter.NewSet(map[string][]filter.Condition{"word": {mustCond(t, "lang", "en", "de")}})
	page, err := New(reg, recs).Search(context.Background(), mustRequest(t, "apple", reqOpts{filters: set}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := pageIDs(page); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("ids = %v, want [1]", got)
	}
}

func TestSearch_CrossTypeTieBreak(t *testing.T) {
	reg := newRegistry(t, mustType(t, "word", nil), mustType(t, "user", nil))
	for _, typ := range []string{"word", "user"} {
		write(t, reg, typ, 1, "river")
		write(t, reg, typ, 2, "river")
	}

	page, err := New(reg, nil).Search(context.Background(), mustRequest(t, "river", reqOpts{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var got []string
	for _, r := range page.Results() {
		got = append(got, fmt.Sprintf("%s/%d", r.EntityType(), r.ID()))
	}
	want := []string{"user/1", "word/1", "user/2", "word/2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSearch_DateAndNameOrder(t *testing.T) {
	et := mustType(t, "word", nil, entity.WithNameField("title"), entity.WithDateFields("created_at", "updated_at"))
	reg := newRegistry(t, et)
	write(t, reg, "word", 1, "moon")
	write(t, reg, "word", 2, "moon")
	write(t, reg, "word", 3, "moon")
	recs := staticRecords(map[string]map[int64]record.Record{"word": {
		1: record.Reconstruct(1, map[string]string{"title": "beta", "created_at": "2024-01-01"}, nil),
		2: record.Reconstruct(2, map[string]string{"title": "Alpha", "created_at": "2023-01-01", "updated_at": "2024-06-01"}, nil),
		3: record.Reconstruct(3, map[string]string{"title": "gamma"}, nil),
	}})
	svc := New(reg, recs)

	page, err := svc.Search(context.Background(), mustRequest(t, "moon", reqOpts{order: order.Date}))
	if err != nil {
		t.Fatalf("Search(date): %v", err)
	}
	if got := pageIDs(page); !reflect.DeepEqual(got, []int64{2, 1, 3}) {
		t.Errorf("date order = %v, want [2 1 3]", got)
	}

	page, err = svc.Search(context.Background(), mustRequest(t, "moon", reqOpts{order: order.Name}))
	if err != nil {
		t.Fatalf("Search(name): %v", err)
	}
	if got := pageIDs(page); !reflect.DeepEqual(got, []int64{2, 1, 3}) {
		t.Errorf("name order = %v, want [2 1 3]", got)
	}
}

func TestSearch_PaginationConcatenates(t *testing.T) {
	reg := newRegistry(t, mustType(t, "word", nil), mustType(t, "user", nil))
	for i := int64(1); i <= 7; i++ {
		write(t, reg, "word", i, fmt.Sprintf("lake %s", repeat("shore ", int(i))))
	}
	for i := int64(1); i <= 4; i++ {
		write(t, reg, "user", i, "lake")
	}
	svc := New(reg, nil)
	ctx := context.Background()

	full, err := svc.Search(ctx, mustRequest(t, "lake", reqOpts{limit: 100}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var paged []string
	for off := 0; off < full.Total(); off += 3 {
		p, err := svc.Search(ctx, mustRequest(t, "lake", reqOpts{limit: 3, offset: off}))
		if err != nil {
			t.Fatalf("Search(offset %d): %v", off, err)
		}
		if p.Total() != full.Total() {
			t.Errorf("total at offset %d = %d, want %d", off, p.Total(), full.Total())
		}
		if want := off+3 < full.Total(); p.HasMore() != want {
			t.Errorf("hasMore at offset %d = %v, want %v", off, p.HasMore(), want)
		}
		for _, r := range p.Results() {
			paged = append(paged, fmt.Sprintf("%s/%d", r.EntityType(), r.ID()))
		}
	}
	var all []string
	for _, r := range full.Results() {
		all = append(all, fmt.Sprintf("%s/%d", r.EntityType(), r.ID()))
	}
	if !reflect.DeepEqual(paged, all) {
		t.Errorf("pages = %v\nfull = %v", paged, all)
	}

	beyond, err := svc.Search(ctx, mustRequest(t, "lake", reqOpts{offset: 50}))
	if err != nil {
		t.Fatalf("Search(beyond): %v", err)
	}
	if len(beyond.Results()) != 0 || beyond.Total() != 11 || beyond.HasMore() {
		t.Errorf("beyond = %d results total %d", len(beyond.Results()), beyond.Total())
	}
}

func TestSearch_Deterministic(t *testing.T) {
	reg := newRegistry(t, mustType(t, "word", nil), mustType(t, "user", nil))
	for i := int64(1); i <= 20; i++ {
		write(t, reg, "word", i, "sun")
		write(t, reg, "user", i, "sun")
	}
	svc := New(reg, nil)
	first, err := svc.Search(context.Background(), mustRequest(t, "sun", reqOpts{limit: 100}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for range 10 {
		again, err := svc.Search(context.Background(), mustRequest(t, "sun", reqOpts{limit: 100}))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		for i := range first.Results() {
			a, b := first.Results()[i], again.Results()[i]
			if a.ID() != b.ID() || a.EntityType() != b.EntityType() {
				t.Fatalf("result %d differs: %s/%d vs %s/%d", i, a.EntityType(), a.ID(), b.EntityType(), b.ID())
			}
		}
	}
}

func TestSearch_PartialAvailability(t *testing.T) {
	reg := newRegistry(t, mustType(t, "word", nil), mustType(t, "user", nil))
	write(t, reg, "word", 1, "storm")
	write(t, reg, "user", 1, "storm")
	user, _ := reg.Route("user")
	user.Invalidate("drift")

	svc := New(reg, nil)
	page, err := svc.Search(context.Background(), mustRequest(t, "storm", reqOpts{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := page.Unavailable(); !reflect.DeepEqual(got, []string{"user"}) {
		t.Errorf("unavailable = %v", got)
	}
	if len(page.Results()) != 1 || page.Results()[0].EntityType() != "word" {
		t.Errorf("results = %+v", page.Results())
	}

	_, err = svc.Search(context.Background(), mustRequest(t, "storm", reqOpts{types: []string{"user"}}))
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("error = %v, want ErrIndexUnavailable", err)
	}
}

func TestSearch_ZeroMatchesIsNotUnavailable(t *testing.T) {
	reg := newRegistry(t, mustType(t, "word", nil), mustType(t, "user", nil))
	page, err := New(reg, nil).Search(context.Background(), mustRequest(t, "nothing", reqOpts{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total() != 0 || len(page.Unavailable()) != 0 {
		t.Errorf("page = %+v", page)
	}
}

func TestSearch_HighlightAndURL(t *testing.T) {
	et := mustType(t, "word", nil, entity.WithNameField("title"), entity.WithURLPattern("/words/{id}-{slug}"))
	reg := newRegistry(t, et)
	write(t, reg, "word", 9, "Quick Fox jumps")
	recs := staticRecords(map[string]map[int64]record.Record{"word": {
		9: record.Reconstruct(9, map[string]string{"title": "Quick Fox"}, nil),
	}})
	svc := New(reg, recs, WithHighlighter(highlight.New("[", "]")))

	page, err := svc.Search(context.Background(), mustRequest(t, "fox", reqOpts{highlight: true}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	r := page.Results()[0]
	if got := r.Fields()["body"]; got != "Quick [Fox] jumps" {
		t.Errorf("body = %q", got)
	}
	if r.URL() != "/words/9-quick-fox" {
		t.Errorf("url = %q", r.URL())
	}

	plain, _ := svc.Search(context.Background(), mustRequest(t, "fox", reqOpts{}))
	if got := plain.Results()[0].Fields()["body"]; got != "Quick Fox jumps" {
		t.Errorf("unhighlighted body = %q", got)
	}
}

func TestSearch_RecordLoadError(t *testing.T) {
	reg := newRegistry(t, mustType(t, "word", []string{"lang"}))
	write(t, reg, "word", 1, "apple")
	boom := errors.New("store down")
	recs := &mockRecords{loadFn: func(context.Context, entity.Type, []int64) (map[int64]record.Record, error) {
		return nil, boom
	}}
	set, _ := filter.NewSet(map[string][]filter.Condition{"word": {mustCond(t, "lang", "en")}})
	_, err := New(reg, recs).Search(context.Background(), mustRequest(t, "apple", reqOpts{filters: set}))
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
}

func mustCond(t *testing.T, key string, values ...string) filter.Condition {
	t.Helper()
	c, err := filter.New(key, values...)
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	return c
}

func repeat(s string, n int) string {
	out := ""
	for range n {
		out += s
	}
	return out
}
