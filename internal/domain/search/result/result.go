package result

import "time"

// Result is a single search hit.
type Result struct {
	id         int64
	entityType string
	score      float64
	fields     map[string]string
	url        string
}

// New creates a search result.
func New(id int64, entityType string, score float64, fields map[string]string, url string) Result {
	return Result{id: id, entityType: entityType, score: score, fields: fields, url: url}
}

// ID returns the document identifier.
func (r *Result) ID() int64 { return r.id }

// EntityType returns the entity type the document belongs to.
func (r *Result) EntityType() string { return r.entityType }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Fields returns the indexed field text, highlighted when requested.
func (r *Result) Fields() map[string]string { return r.fields }

// URL returns the navigable reference.
func (r *Result) URL() string { return r.url }

// Page is one page of a merged, sorted result list.
type Page struct {
	results     []Result
	total       int
	hasMore     bool
	elapsed     time.Duration
	unavailable []string
}

// NewPage creates a page. hasMore is derived from offset, page length and total.
func NewPage(results []Result, offset, total int, elapsed time.Duration, unavailable []string) Page {
	return Page{
		results:     results,
		total:       total,
		hasMore:     offset+len(results) < total,
		elapsed:     elapsed,
		unavailable: unavailable,
	}
}

// Empty returns a page with no results.
func Empty(elapsed time.Duration) Page {
	return Page{elapsed: elapsed}
}

// Results returns the page entries.
func (p *Page) Results() []Result { return p.results }

// Total returns the pre-pagination match count across all target types.
func (p *Page) Total() int { return p.total }

// HasMore reports whether later pages exist.
func (p *Page) HasMore() bool { return p.hasMore }

// Elapsed returns the query execution time.
func (p *Page) Elapsed() time.Duration { return p.elapsed }

// Unavailable returns target types skipped because their index was unavailable.
func (p *Page) Unavailable() []string { return p.unavailable }
