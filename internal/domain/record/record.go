package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is a read view of one authoritative row (immutable value object).
// Scalar attributes and list attributes live in separate maps; an attribute
// name appears in at most one of them.
type Record struct {
	id      int64
	scalars map[string]string
	lists   map[string][]string
}

// New validates and creates a Record. ID must be positive.
func New(id int64, scalars map[string]string, lists map[string][]string) (Record, error) {
	if id <= 0 {
		return Record{}, fmt.Errorf("record id must be positive, got %d", id)
	}
	for k := range lists {
		if _, dup := scalars[k]; dup {
			return Record{}, fmt.Errorf("attribute %q is both scalar and list", k)
		}
	}
	return Record{id: id, scalars: cloneScalars(scalars), lists: cloneLists(lists)}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id int64, scalars map[string]string, lists map[string][]string) Record {
	return Record{id: id, scalars: scalars, lists: lists}
}

// ID returns the row id shared with the index entry.
func (r Record) ID() int64 { return r.id }

// Scalars returns the scalar attributes.
func (r Record) Scalars() map[string]string { return r.scalars }

// Lists returns the list attributes.
func (r Record) Lists() map[string][]string { return r.lists }

// Scalar returns a scalar attribute.
func (r Record) Scalar(name string) (string, bool) {
	v, ok := r.scalars[name]
	return v, ok
}

// Values returns an attribute as a slice regardless of its kind.
func (r Record) Values(name string) []string {
	if v, ok := r.scalars[name]; ok {
		return []string{v}
	}
	return r.lists[name]
}

// Text returns the text fed to the index for the given indexed field names.
// Scalar attributes are used as-is; list attributes are joined with spaces.
func (r Record) Text(fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := r.scalars[f]; ok {
			out[f] = v
			continue
		}
		if vs, ok := r.lists[f]; ok {
			out[f] = strings.Join(vs, " ")
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseTime parses a timestamp attribute: RFC 3339, SQL datetime, date, or unix seconds.
func ParseTime(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), true
		}
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}

func cloneScalars(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneLists(m map[string][]string) map[string][]string {
	c := make(map[string][]string, len(m))
	for k, v := range m {
		c[k] = append([]string(nil), v...)
	}
	return c
}
