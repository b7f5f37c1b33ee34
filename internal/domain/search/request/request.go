package request

import (
	"fmt"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/domain/search/filter"
	"github.com/huntkil/lexis/internal/domain/search/order"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed raw query length in bytes.
	MaxQueryLength = 1024
	DefaultLimit   = 20
	MaxLimit       = 100
	// MaxOffset bounds deep pagination.
	MaxOffset = 10000
)

// Limits overrides the default and maximum page size.
type Limits struct {
	Default int
	Max     int
}

func (l Limits) resolve() Limits {
	if l.Max <= 0 {
		l.Max = MaxLimit
	}
	if l.Default <= 0 {
		l.Default = DefaultLimit
	}
	if l.Default > l.Max {
		l.Default = l.Max
	}
	return l
}

// Request is a validated search query.
type Request struct {
	query     string
	types     []string
	filters   filter.Set
	sortOrder order.Order
	limit     int
	offset    int
	highlight bool
}

// New validates and normalizes search parameters.
// An empty types list targets every registered type. Limit 0 yields the
// default, limits above the maximum are clamped, negative limit or offset
// is rejected. All validation failures wrap domain.ErrInvalidQuery.
func New(
	query string,
	types []string,
	filters filter.Set,
	o order.Order,
	limit, offset int,
	highlight bool,
	lim Limits,
) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if o == "" {
		o = order.Relevance
	}
	if !o.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid sort mode %q", domain.ErrInvalidQuery, o)
	}
	if limit < 0 {
		return Request{}, fmt.Errorf("%w: limit must be non-negative", domain.ErrInvalidQuery)
	}
	if offset < 0 {
		return Request{}, fmt.Errorf("%w: offset must be non-negative", domain.ErrInvalidQuery)
	}
	if offset > MaxOffset {
		return Request{}, fmt.Errorf("%w: offset too large (max %d)", domain.ErrInvalidQuery, MaxOffset)
	}
	lim = lim.resolve()
	if limit == 0 {
		limit = lim.Default
	}
	if limit > lim.Max {
		limit = lim.Max
	}

	seen := make(map[string]bool, len(types))
	targets := make([]string, 0, len(types))
	for _, t := range types {
		if t == "" {
			return Request{}, fmt.Errorf("%w: empty entity type", domain.ErrInvalidQuery)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		targets = append(targets, t)
	}

	return Request{
		query:     query,
		types:     targets,
		filters:   filters,
		sortOrder: o,
		limit:     limit,
		offset:    offset,
		highlight: highlight,
	}, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// Types returns the requested entity types (empty = all registered).
func (r *Request) Types() []string { return r.types }

// Filters returns the per-type attribute filters.
func (r *Request) Filters() filter.Set { return r.filters }

// Order returns the sort mode.
func (r *Request) Order() order.Order { return r.sortOrder }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Offset returns the number of results to skip.
func (r *Request) Offset() int { return r.offset }

// Highlight reports whether result fields should carry match markers.
func (r *Request) Highlight() bool { return r.highlight }
