package filter

import (
	"fmt"
	"sort"
)

// Limits on filter size.
const (
	MaxConditionsPerType  = 32
	MaxValuesPerCondition = 256
)

// Condition restricts one attribute. A single value means equality, several
// values mean set membership. A list attribute satisfies the condition when
// any of its elements does.
type Condition struct {
	key    string
	values []string
}

// New validates and creates a Condition.
func New(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("filter %q needs at least one value", key)
	}
	if len(values) > MaxValuesPerCondition {
		return Condition{}, fmt.Errorf("filter %q has too many values (max %d)", key, MaxValuesPerCondition)
	}
	return Condition{key: key, values: append([]string(nil), values...)}, nil
}

// Key returns the attribute name.
func (c Condition) Key() string { return c.key }

// Values returns the accepted values.
func (c Condition) Values() []string { return c.values }

// IsEquality reports whether the condition carries exactly one value.
func (c Condition) IsEquality() bool { return len(c.values) == 1 }

// Matches reports whether any of the actual attribute values is accepted.
// A missing attribute (no values) never matches.
func (c Condition) Matches(actual []string) bool {
	for _, a := range actual {
		for _, v := range c.values {
			if a == v {
				return true
			}
		}
	}
	return false
}

// Set holds the conditions of a query grouped by entity type.
// Conditions of one type are combined with AND.
type Set struct {
	byType map[string][]Condition
}

// NewSet validates and creates a Set.
func NewSet(byType map[string][]Condition) (Set, error) {
	s := Set{byType: make(map[string][]Condition, len(byType))}
	for t, conds := range byType {
		if t == "" {
			return Set{}, fmt.Errorf("filter entity type is required")
		}
		if len(conds) > MaxConditionsPerType {
			return Set{}, fmt.Errorf("too many filters for %q (max %d)", t, MaxConditionsPerType)
		}
		if len(conds) == 0 {
			continue
		}
		s.byType[t] = append([]Condition(nil), conds...)
	}
	return s, nil
}

// For returns the conditions of one entity type.
func (s Set) For(entityType string) []Condition { return s.byType[entityType] }

// Types returns the entity types that carry conditions, sorted.
func (s Set) Types() []string {
	out := make([]string, 0, len(s.byType))
	for t := range s.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether the set has no conditions.
func (s Set) IsEmpty() bool { return len(s.byType) == 0 }

// MatchAll reports whether every condition accepts the values returned by get.
func MatchAll(conds []Condition, get func(attr string) []string) bool {
	for _, c := range conds {
		if !c.Matches(get(c.key)) {
			return false
		}
	}
	return true
}
