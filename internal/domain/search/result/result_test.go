package result

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	fields := map[string]string{"title": "apple"}
	r := New(7, "word", 1.5, fields, "/word/7")

	if r.ID() != 7 {
		t.Errorf("ID() = %d", r.ID())
	}
	if r.EntityType() != "word" {
		t.Errorf("EntityType() = %q", r.EntityType())
	}
	if r.Score() != 1.5 {
		t.Errorf("Score() = %f", r.Score())
	}
	if r.Fields()["title"] != "apple" {
		t.Errorf("Fields() = %v", r.Fields())
	}
	if r.URL() != "/word/7" {
		t.Errorf("URL() = %q", r.URL())
	}
}

func TestNewPage_HasMore(t *testing.T) {
	three := []Result{New(1, "a", 0, nil, ""), New(2, "a", 0, nil, ""), New(3, "a", 0, nil, "")}
	tests := []struct {
		name    string
		results []Result
		offset  int
		total   int
		want    bool
	}{
		{"first page of many", three, 0, 10, true},
		{"last full page", three, 7, 10, false},
		{"short last page", three[:1], 9, 10, false},
		{"offset past end", nil, 20, 10, false},
		{"single page", three, 0, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(tt.results, tt.offset, tt.total, time.Millisecond, nil)
			if p.HasMore() != tt.want {
				t.Errorf("HasMore() = %v, want %v", p.HasMore(), tt.want)
			}
			if p.Total() != tt.total {
				t.Errorf("Total() = %d", p.Total())
			}
		})
	}
}

func TestEmpty(t *testing.T) {
	p := Empty(time.Second)
	if len(p.Results()) != 0 || p.Total() != 0 || p.HasMore() {
		t.Errorf("Empty() = %+v", p)
	}
	if p.Elapsed() != time.Second {
		t.Errorf("Elapsed() = %v", p.Elapsed())
	}
}
