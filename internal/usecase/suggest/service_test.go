package suggest

import (
	"context"
	"reflect"
	"testing"

	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/entity/field"
	"github.com/huntkil/lexis/internal/index"
)

func setup(t *testing.T, docs map[string][]string) *index.Registry {
	t.Helper()
	reg := index.NewRegistry(index.DefaultParams())
	for typ, bodies := range docs {
		et, err := entity.New(typ, "", []field.Field{field.Reconstruct("body", 1)}, nil)
		if err != nil {
			t.Fatalf("entity.New: %v", err)
		}
		ix, err := reg.Register(et)
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		for i, b := range bodies {
			if err := ix.OnWrite(context.Background(), int64(i+1), map[string]string{"body": b}); err != nil {
				t.Fatalf("OnWrite: %v", err)
			}
		}
	}
	return reg
}

func terms(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, x := range s {
		out[i] = x.Term
	}
	return out
}

func TestSuggest_FrequencyThenAlphabetical(t *testing.T) {
	reg := setup(t, map[string][]string{
		"note": {"quick", "quiet", "question", "quiet question", "quiet"},
	})
	got, err := New(reg, nil).Suggest(context.Background(), "qu", 5)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	want := []Suggestion{{"quiet", 3}, {"question", 2}, {"quick", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest() = %v, want %v", got, want)
	}
}

func TestSuggest_TiesAlphabetical(t *testing.T) {
	reg := setup(t, map[string][]string{"note": {"quick", "quiet", "question"}})
	got, err := New(reg, nil).Suggest(context.Background(), "QU", 5)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if want := []string{"question", "quick", "quiet"}; !reflect.DeepEqual(terms(got), want) {
		t.Errorf("Suggest() = %v, want %v", terms(got), want)
	}
}

func TestSuggest_SumsAcrossTypes(t *testing.T) {
	reg := setup(t, map[string][]string{
		"word": {"lantern", "lamp"},
		"user": {"lantern", "lantern keeper"},
	})
	got, err := New(reg, nil).Suggest(context.Background(), "la", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	want := []Suggestion{{"lantern", 3}, {"lamp", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest() = %v, want %v", got, want)
	}
}

func TestSuggest_EmptyPrefix(t *testing.T) {
	reg := setup(t, map[string][]string{"note": {"quick"}})
	for _, p := range []string{"", "  ", "!"} {
		got, err := New(reg, nil).Suggest(context.Background(), p, 5)
		if err != nil || len(got) != 0 {
			t.Errorf("Suggest(%q) = %v, %v", p, got, err)
		}
	}
}

func TestSuggest_Limits(t *testing.T) {
	bodies := make([]string, 0, 150)
	for i := range 150 {
		bodies = append(bodies, "term"+string(rune('a'+i%26))+string(rune('a'+i/26)))
	}
	reg := setup(t, map[string][]string{"note": bodies})
	svc := New(reg, nil)

	got, _ := svc.Suggest(context.Background(), "term", 0)
	if len(got) != DefaultLimit {
		t.Errorf("limit 0 -> %d results, want %d", len(got), DefaultLimit)
	}
	got, _ = svc.Suggest(context.Background(), "term", 1000)
	if len(got) != MaxLimit {
		t.Errorf("limit 1000 -> %d results, want %d", len(got), MaxLimit)
	}
}

func TestPopular(t *testing.T) {
	reg := setup(t, map[string][]string{"note": {"sun moon", "sun", "star sun moon"}})
	got, err := New(reg, nil).Popular(context.Background(), 2)
	if err != nil {
		t.Fatalf("Popular: %v", err)
	}
	want := []Suggestion{{"sun", 3}, {"moon", 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Popular() = %v, want %v", got, want)
	}
}

func TestSuggest_SkipsUnavailable(t *testing.T) {
	reg := setup(t, map[string][]string{"word": {"apple"}, "user": {"apricot"}})
	user, _ := reg.Route("user")
	user.Invalidate("drift")
	got, err := New(reg, nil).Suggest(context.Background(), "ap", 5)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if want := []string{"apple"}; !reflect.DeepEqual(terms(got), want) {
		t.Errorf("Suggest() = %v, want %v", terms(got), want)
	}
}
