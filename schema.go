package lexis

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const tagKey = "lexis"

var timeType = reflect.TypeOf(time.Time{})

// schemaMeta holds parsed struct tag metadata, cached per TypedIndex.
type schemaMeta struct {
	typ   reflect.Type // struct type for reconstruction
	idIdx int

	attrs      []attrMapping
	nameField  string
	dateFields []string
}

// attrMapping maps one struct field to a record attribute.
type attrMapping struct {
	structIdx int
	name      string
	weight    float64 // > 0 for indexed text
	filter    bool
}

// parseSchema reflects on T and extracts lexis struct tag metadata.
//
//	type Word struct {
//		ID      int64     `lexis:"id,id"`
//		Title   string    `lexis:"title,text=3,name"`
//		Body    string    `lexis:"body,text"`
//		Lang    string    `lexis:"lang,filter"`
//		Tags    []string  `lexis:"tags,filter"`
//		Created time.Time `lexis:"created_at,date"`
//	}
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("lexis: type parameter must be a struct")
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("lexis: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}
	return validateSchema(meta, t)
}

// applyTag processes a single struct field's lexis tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = strings.ToLower(f.Name)
	}

	m := attrMapping{structIdx: idx, name: name}
	keep := false
	for _, mod := range parts[1:] {
		key, val, hasVal := strings.Cut(mod, "=")
		switch key {
		case "id":
			if meta.idIdx != -1 {
				return fmt.Errorf("lexis: duplicate id tag on field %s", f.Name)
			}
			if !isInt(f.Type) {
				return fmt.Errorf("lexis: id field %s must be an integer", f.Name)
			}
			meta.idIdx = idx
		case "text":
			if f.Type.Kind() != reflect.String {
				return fmt.Errorf("lexis: text field %s must be a string", f.Name)
			}
			m.weight = 1
			if hasVal {
				w, err := strconv.ParseFloat(val, 64)
				if err != nil || w <= 0 {
					return fmt.Errorf("lexis: invalid weight %q on field %s", val, f.Name)
				}
				m.weight = w
			}
			keep = true
		case "filter":
			m.filter = true
			keep = true
		case "name":
			if meta.nameField != "" {
				return fmt.Errorf("lexis: duplicate name tag on field %s", f.Name)
			}
			meta.nameField = name
			keep = true
		case "date":
			if f.Type != timeType && f.Type.Kind() != reflect.String {
				return fmt.Errorf("lexis: date field %s must be time.Time or string", f.Name)
			}
			meta.dateFields = append(meta.dateFields, name)
			keep = true
		default:
			return fmt.Errorf("lexis: unknown modifier %q on field %s", mod, f.Name)
		}
	}
	if keep {
		if !isScalar(f.Type) && !isStringSlice(f.Type) {
			return fmt.Errorf("lexis: field %s has unsupported type %s", f.Name, f.Type)
		}
		meta.attrs = append(meta.attrs, m)
	}
	return nil
}

func validateSchema(meta *schemaMeta, t reflect.Type) (*schemaMeta, error) {
	if meta.idIdx == -1 {
		return nil, fmt.Errorf("lexis: no field with `lexis:\"...,id\"` tag in %s", t)
	}
	indexed := false
	for _, a := range meta.attrs {
		if a.weight > 0 {
			indexed = true
			break
		}
	}
	if !indexed {
		return nil, fmt.Errorf("lexis: no field with a text modifier in %s", t)
	}
	return meta, nil
}

// entityType builds the registration of an index named name.
func (m *schemaMeta) entityType(name string, o indexOptions) EntityType {
	et := EntityType{
		Name:       name,
		Source:     o.source,
		NameField:  m.nameField,
		DateFields: m.dateFields,
		URL:        o.url,
	}
	for _, a := range m.attrs {
		if a.weight > 0 {
			et.Fields = append(et.Fields, Field{Name: a.name, Weight: a.weight})
		}
		if a.filter {
			et.Filterable = append(et.Filterable, a.name)
		}
	}
	return et
}

// toRecord converts a typed struct into its record and indexed text.
func (m *schemaMeta) toRecord(item any) (Record, map[string]string) {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	rec := Record{
		ID:      toInt64(v.Field(m.idIdx)),
		Scalars: make(map[string]string, len(m.attrs)),
		Lists:   make(map[string][]string),
	}
	text := make(map[string]string, len(m.attrs))
	for _, a := range m.attrs {
		fv := v.Field(a.structIdx)
		if isStringSlice(fv.Type()) {
			rec.Lists[a.name] = append([]string(nil), fv.Interface().([]string)...)
			continue
		}
		s := formatScalar(fv)
		rec.Scalars[a.name] = s
		if a.weight > 0 {
			text[a.name] = s
		}
	}
	return rec, text
}

// fromRecord rebuilds a typed struct from a record or indexed field text.
func (m *schemaMeta) fromRecord(id int64, scalars map[string]string, lists map[string][]string) any {
	v := reflect.New(m.typ).Elem()
	setInt(v.Field(m.idIdx), id)
	for _, a := range m.attrs {
		fv := v.Field(a.structIdx)
		if isStringSlice(fv.Type()) {
			if l, ok := lists[a.name]; ok {
				fv.Set(reflect.ValueOf(append([]string(nil), l...)))
			}
			continue
		}
		if s, ok := scalars[a.name]; ok {
			parseScalar(fv, s)
		}
	}
	return v.Interface()
}

func isInt(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func isScalar(t reflect.Type) bool {
	return t == timeType || t.Kind() == reflect.String || t.Kind() == reflect.Bool || isInt(t) ||
		t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}

func isStringSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.String
}

func toInt64(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()) //nolint:gosec // ids are positive and fit int64
	default:
		return v.Int()
	}
}

func setInt(v reflect.Value, n int64) {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(uint64(n)) //nolint:gosec // ids are positive
	default:
		v.SetInt(n)
	}
}

func formatScalar(v reflect.Value) string {
	if v.Type() == timeType {
		ts := v.Interface().(time.Time)
		if ts.IsZero() {
			return ""
		}
		return ts.UTC().Format(time.RFC3339Nano)
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	default:
		return strconv.FormatInt(v.Int(), 10)
	}
}

// parseScalar sets v from s; values that do not parse leave v zero.
func parseScalar(v reflect.Value, s string) {
	if v.Type() == timeType {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			v.Set(reflect.ValueOf(ts))
		}
		return
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			v.SetBool(b)
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			v.SetFloat(f)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			v.SetUint(n)
		}
	default:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			v.SetInt(n)
		}
	}
}
