package lexis

import (
	"context"
	"fmt"
)

// Hit is a typed search result. Item carries the id and the indexed text
// fields, highlighted when requested.
type Hit[T any] struct {
	Item  T
	Score float64
	URL   string
}

// SearchBuilder is a fluent builder for typed search queries.
type SearchBuilder[T any] struct {
	idx *TypedIndex[T]

	query     string
	filters   []Filter
	sort      SortMode
	limit     int
	offset    int
	highlight bool
}

// Query sets the query text.
func (b *SearchBuilder[T]) Query(q string) *SearchBuilder[T] {
	b.query = q
	return b
}

// Where adds a filter on a filterable attribute. Several values mean set membership.
func (b *SearchBuilder[T]) Where(attr string, values ...string) *SearchBuilder[T] {
	b.filters = append(b.filters, Filter{EntityType: b.idx.name, Attribute: attr, Values: values})
	return b
}

// Sort sets the result order.
func (b *SearchBuilder[T]) Sort(m SortMode) *SearchBuilder[T] {
	b.sort = m
	return b
}

// Limit sets the page size.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	b.limit = n
	return b
}

// Offset sets how many results to skip.
func (b *SearchBuilder[T]) Offset(n int) *SearchBuilder[T] {
	b.offset = n
	return b
}

// Highlight wraps matched terms in the returned text fields.
func (b *SearchBuilder[T]) Highlight() *SearchBuilder[T] {
	b.highlight = true
	return b
}

// Do executes the search and returns typed results.
func (b *SearchBuilder[T]) Do(ctx context.Context) ([]Hit[T], error) {
	page, err := b.idx.engine.Search(ctx, Query{
		Text:      b.query,
		Types:     []string{b.idx.name},
		Filters:   b.filters,
		Sort:      b.sort,
		Limit:     b.limit,
		Offset:    b.offset,
		Highlight: b.highlight,
	})
	if err != nil {
		return nil, fmt.Errorf("typed search: %w", err)
	}
	return b.toHits(page.Results), nil
}

func (b *SearchBuilder[T]) toHits(results []Result) []Hit[T] {
	hits := make([]Hit[T], 0, len(results))
	for _, r := range results {
		item, ok := b.idx.meta.fromRecord(r.ID, r.Fields, nil).(T)
		if !ok {
			continue
		}
		hits = append(hits, Hit[T]{Item: item, Score: r.Score, URL: r.URL})
	}
	return hits
}
