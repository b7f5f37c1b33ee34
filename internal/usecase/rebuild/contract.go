package rebuild

import (
	"context"

	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/index"
)

// Indexes resolves registered entity indexes.
type Indexes interface {
	Route(name string) (*index.EntityIndex, error)
	Types() []string
}

// Source opens a full scan of an entity type's authoritative collection.
type Source interface {
	Rows(ctx context.Context, et entity.Type) (index.RowIterator, error)
}
