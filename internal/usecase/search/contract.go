package search

import (
	"context"

	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/index"
)

// Indexes resolves registered entity indexes.
type Indexes interface {
	Route(name string) (*index.EntityIndex, error)
	Types() []string
}

// Records loads live attributes of candidate documents from the authoritative store.
type Records interface {
	Load(ctx context.Context, et entity.Type, ids []int64) (map[int64]record.Record, error)
}

// Expander adds configured synonyms to the query terms.
type Expander interface {
	Expand(terms []string) []string
}
