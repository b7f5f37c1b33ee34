package record

import (
	"context"

	"github.com/huntkil/lexis/internal/domain/entity"
	domrec "github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/index"
)

// Tx is a write transaction on the authoritative store.
type Tx interface {
	Put(ctx context.Context, et entity.Type, rec domrec.Record) error
	Delete(ctx context.Context, et entity.Type, id int64) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens authoritative write transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context) (Tx, error)

// Begin calls f(ctx).
func (f StoreFunc) Begin(ctx context.Context) (Tx, error) { return f(ctx) }

// Indexes routes entity types and opens index sync transactions.
type Indexes interface {
	Route(name string) (*index.EntityIndex, error)
	Begin() *index.Tx
}
