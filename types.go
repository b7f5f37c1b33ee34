package lexis

import (
	"time"

	"github.com/huntkil/lexis/internal/domain/search/order"
)

// Field is an indexed text field and its ranking weight.
type Field struct {
	Name   string
	Weight float64
}

// EntityType describes one searchable collection.
type EntityType struct {
	// Name identifies the type in queries and sync events: ^[a-z0-9_-]+$.
	Name string
	// Source is the authoritative collection name. Defaults to Name.
	Source string
	// Fields are the indexed text fields, at least one.
	Fields []Field
	// Filterable lists the attributes queries may filter on.
	Filterable []string
	// NameField is used for name sort and the {slug} url placeholder.
	NameField string
	// DateFields are timestamps; date sort uses the most recent one.
	DateFields []string
	// URL is the result url template. Placeholders: {type}, {id}, {slug}.
	URL string
}

// Record is one authoritative row. An attribute is either a scalar or a list.
type Record struct {
	ID      int64
	Scalars map[string]string
	Lists   map[string][]string
}

// SortMode orders search results.
type SortMode string

// Sort modes.
const (
	SortRelevance SortMode = SortMode(order.Relevance)
	SortDate      SortMode = SortMode(order.Date)
	SortName      SortMode = SortMode(order.Name)
)

// Filter restricts one attribute of one entity type. A single value means
// equality, several mean set membership.
type Filter struct {
	EntityType string
	Attribute  string
	Values     []string
}

// Query is a search request. Zero values select the defaults: every type,
// relevance order, the default page size.
type Query struct {
	Text      string
	Types     []string
	Filters   []Filter
	Sort      SortMode
	Limit     int
	Offset    int
	Highlight bool
}

// Result is one ranked document.
type Result struct {
	ID         int64
	EntityType string
	Score      float64
	Fields     map[string]string
	URL        string
}

// Page is one page of merged results.
type Page struct {
	Results []Result
	// Total counts every match across the targeted types.
	Total   int
	HasMore bool
	Elapsed time.Duration
	// Unavailable lists targeted types skipped because their index was down.
	Unavailable []string
}

// Suggestion is a vocabulary term with its document frequency.
type Suggestion struct {
	Term      string
	Frequency int
}

// IndexState reports whether a type's index can serve queries.
type IndexState string

// Index states.
const (
	StateReady      IndexState = "ready"
	StateRebuilding IndexState = "rebuilding"
	StateCorrupted  IndexState = "corrupted"
)

// TypeStats describes one entity index.
type TypeStats struct {
	EntityType string
	Documents  int
	Terms      int
	AvgLength  float64
	State      IndexState
	Reason     string
}

// Stats aggregates every registered type. Terms counts distinct terms.
type Stats struct {
	Types     []TypeStats
	Documents int
	Terms     int
}

// RebuildOutcome is the result of rebuilding one type.
type RebuildOutcome struct {
	EntityType string
	Documents  int
	Duration   time.Duration
	Err        error
}

// RebuildReport collects the per-type outcomes of RebuildAll.
type RebuildReport struct {
	Outcomes []RebuildOutcome
	err      error
}

// Err combines every failure of the report, nil when all types succeeded.
func (r RebuildReport) Err() error { return r.err }

// Failed returns the types whose rebuild failed, in report order.
func (r RebuildReport) Failed() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.EntityType)
		}
	}
	return out
}
