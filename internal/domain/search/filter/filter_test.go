package filter

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		values  []string
		wantErr string
	}{
		{"equality", "lang", []string{"en"}, ""},
		{"membership", "level", []string{"a1", "a2"}, ""},
		{"empty key", "", []string{"en"}, "key is required"},
		{"no values", "lang", nil, "at least one value"},
		{"too many values", "lang", make([]string, MaxValuesPerCondition+1), "too many"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.key, tt.values...)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if c.Key() != tt.key || len(c.Values()) != len(tt.values) {
					t.Errorf("got %+v", c)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestCondition_Matches(t *testing.T) {
	eq, _ := New("lang", "en")
	in, _ := New("level", "a1", "b2")

	tests := []struct {
		name   string
		c      Condition
		actual []string
		want   bool
	}{
		{"equality hit", eq, []string{"en"}, true},
		{"equality miss", eq, []string{"de"}, false},
		{"equality is case sensitive", eq, []string{"EN"}, false},
		{"membership hit", in, []string{"b2"}, true},
		{"membership miss", in, []string{"c1"}, false},
		{"list attribute any element", in, []string{"c1", "a1"}, true},
		{"missing attribute", eq, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Matches(tt.actual); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.actual, got, tt.want)
			}
		})
	}
	if !eq.IsEquality() || in.IsEquality() {
		t.Error("IsEquality mismatch")
	}
}

func TestNewSet(t *testing.T) {
	lang, _ := New("lang", "en")

	s, err := NewSet(map[string][]Condition{"word": {lang}, "user": nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(s.Types(), ","); got != "word" {
		t.Errorf("Types() = %q, empty groups should be dropped", got)
	}
	if len(s.For("word")) != 1 || s.For("user") != nil {
		t.Error("For() mismatch")
	}
	if s.IsEmpty() {
		t.Error("IsEmpty() = true")
	}

	empty, _ := NewSet(nil)
	if !empty.IsEmpty() {
		t.Error("nil map should give an empty set")
	}

	if _, err := NewSet(map[string][]Condition{"": {lang}}); err == nil {
		t.Error("expected error for empty type")
	}
	if _, err := NewSet(map[string][]Condition{"word": make([]Condition, MaxConditionsPerType+1)}); err == nil {
		t.Error("expected error for too many conditions")
	}
}

func TestMatchAll(t *testing.T) {
	lang, _ := New("lang", "en")
	tags, _ := New("tags", "food")
	attrs := map[string][]string{"lang": {"en"}, "tags": {"fruit", "food"}}
	get := func(a string) []string { return attrs[a] }

	if !MatchAll([]Condition{lang, tags}, get) {
		t.Error("expected all conditions to match")
	}
	de, _ := New("lang", "de")
	if MatchAll([]Condition{tags, de}, get) {
		t.Error("expected AND semantics")
	}
	if !MatchAll(nil, get) {
		t.Error("no conditions should match")
	}
}
