package entity

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"github.com/huntkil/lexis/internal/domain/entity/field"
)

var nameRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

// DefaultURLPattern is used when a type does not configure its own url.
const DefaultURLPattern = "/{type}/{id}"

// Type is the configuration of one searchable entity type (immutable value object).
// It is registered once at startup and never changes afterwards.
type Type struct {
	name       string
	source     string
	fields     []field.Field
	filterable map[string]bool
	nameField  string
	dateFields []string
	urlPattern string
}

// Option customizes optional presentation attributes of a Type.
type Option func(*Type)

// WithNameField sets the attribute used for name sort and url slugs.
func WithNameField(name string) Option {
	return func(t *Type) { t.nameField = name }
}

// WithDateFields sets the timestamp attributes; date sort uses the most recent one.
func WithDateFields(names ...string) Option {
	return func(t *Type) { t.dateFields = append([]string(nil), names...) }
}

// WithURLPattern sets the result url template. Placeholders: {type}, {id}, {slug}.
func WithURLPattern(p string) Option {
	return func(t *Type) { t.urlPattern = p }
}

// New validates and creates a Type.
// Name: ^[a-z0-9_-]+$, 1-64 chars. Source defaults to the name.
// At least one indexed field is required and field names must be unique.
func New(name, source string, fields []field.Field, filterable []string, opts ...Option) (Type, error) {
	if name == "" {
		return Type{}, fmt.Errorf("entity type name is required")
	}
	if len(name) > 64 {
		return Type{}, fmt.Errorf("entity type name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return Type{}, fmt.Errorf("entity type name %q must be lowercase alphanumeric with underscores and hyphens", name)
	}
	if source == "" {
		source = name
	}
	if len(fields) == 0 {
		return Type{}, fmt.Errorf("entity type %q needs at least one indexed field", name)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return Type{}, fmt.Errorf("duplicate indexed field: %s", f.Name())
		}
		if f.Weight() <= 0 {
			return Type{}, fmt.Errorf("indexed field %s has non-positive weight", f.Name())
		}
		seen[f.Name()] = true
	}

	t := Type{
		name:       name,
		source:     source,
		fields:     append([]field.Field(nil), fields...),
		filterable: make(map[string]bool, len(filterable)),
		urlPattern: DefaultURLPattern,
	}
	for _, a := range filterable {
		if strings.TrimSpace(a) == "" {
			return Type{}, fmt.Errorf("entity type %q has an empty filterable attribute", name)
		}
		t.filterable[a] = true
	}
	for _, o := range opts {
		o(&t)
	}
	for _, d := range t.dateFields {
		if d == "" {
			return Type{}, fmt.Errorf("entity type %q has an empty date field", name)
		}
	}
	if t.urlPattern == "" {
		t.urlPattern = DefaultURLPattern
	}
	return t, nil
}

// Name returns the entity type name.
func (t Type) Name() string { return t.name }

// Source returns the authoritative collection the type is synced from.
func (t Type) Source() string { return t.source }

// Fields returns the indexed fields in declaration order.
func (t Type) Fields() []field.Field { return t.fields }

// FieldByName looks up an indexed field.
func (t Type) FieldByName(name string) (field.Field, bool) {
	for _, f := range t.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// IsFilterable reports whether attr may be used in a query filter.
func (t Type) IsFilterable(attr string) bool { return t.filterable[attr] }

// Filterable returns the filterable attribute names, sorted.
func (t Type) Filterable() []string {
	out := make([]string, 0, len(t.filterable))
	for a := range t.filterable {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// NameField returns the attribute used for name sort ("" if unset).
func (t Type) NameField() string { return t.nameField }

// DateFields returns the timestamp attributes used for date sort.
func (t Type) DateFields() []string { return t.dateFields }

// URLPattern returns the result url template.
func (t Type) URLPattern() string { return t.urlPattern }

// URL renders the navigable reference for a document of this type.
// name feeds the {slug} placeholder; an empty name drops the slug and any
// separator left dangling before it.
func (t Type) URL(id int64, name string) string {
	s := slug.Make(name)
	u := t.urlPattern
	if s == "" {
		u = strings.NewReplacer("-{slug}", "", "/{slug}", "", "{slug}", "").Replace(u)
	}
	return strings.NewReplacer(
		"{type}", t.name,
		"{id}", strconv.FormatInt(id, 10),
		"{slug}", s,
	).Replace(u)
}

// Attributes returns every record attribute the planner may need to read
// for this type: filterable attributes, the name field and the date fields.
func (t Type) Attributes() []string {
	set := make(map[string]bool, len(t.filterable)+len(t.dateFields)+1)
	for a := range t.filterable {
		set[a] = true
	}
	if t.nameField != "" {
		set[t.nameField] = true
	}
	for _, d := range t.dateFields {
		set[d] = true
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
