package filter

import (
	"fmt"
	"strings"

	"github.com/huntkil/lexis/internal/domain"
)

// Parse turns "type.attr:v1,v2" expressions into a Set. One value means
// equality, several mean set membership. Values cannot contain commas.
// Errors wrap domain.ErrInvalidQuery.
func Parse(exprs []string) (Set, error) {
	byType := make(map[string][]Condition)
	for _, e := range exprs {
		target, values, ok := strings.Cut(e, ":")
		if !ok {
			return Set{}, fmt.Errorf("%w: filter %q must look like type.attr:value", domain.ErrInvalidQuery, e)
		}
		typ, attr, ok := strings.Cut(target, ".")
		if !ok || typ == "" || attr == "" {
			return Set{}, fmt.Errorf("%w: filter %q must name type.attr", domain.ErrInvalidQuery, e)
		}
		c, err := New(attr, strings.Split(values, ",")...)
		if err != nil {
			return Set{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
		}
		byType[typ] = append(byType[typ], c)
	}
	set, err := NewSet(byType)
	if err != nil {
		return Set{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return set, nil
}
