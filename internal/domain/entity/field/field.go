package field

import (
	"fmt"
	"regexp"
)

// MaxWeight bounds a field weight so scores stay in a sane float range.
const MaxWeight = 1000

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Field is an immutable value object describing one indexed text field and
// its relevance weight.
type Field struct {
	name   string
	weight float64
}

// New validates and creates a Field.
// Name must be 1-64 chars of [a-zA-Z0-9_]; weight must be in (0, MaxWeight].
func New(name string, weight float64) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if !nameRegex.MatchString(name) {
		return Field{}, fmt.Errorf("field name %q must be alphanumeric with underscores", name)
	}
	if weight <= 0 || weight > MaxWeight {
		return Field{}, fmt.Errorf("field %q weight must be in (0, %d], got %v", name, MaxWeight, weight)
	}
	return Field{name: name, weight: weight}, nil
}

// Reconstruct creates a Field without validation (config hydration).
func Reconstruct(name string, weight float64) Field {
	return Field{name: name, weight: weight}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// Weight returns the relevance multiplier for matches in this field.
func (f Field) Weight() float64 { return f.weight }
