package db

import (
	"context"
	"time"
)

// Row is one record of the authoritative store. Scalar and list attributes
// are kept apart; an attribute name lives in at most one of the maps.
type Row struct {
	Collection string
	ID         int64
	Scalars    map[string]string
	Lists      map[string][]string
}

// Store is the authoritative record store facade.
type Store interface {
	Pinger
	Reader
	Beginner
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reader loads rows.
type Reader interface {
	// Get returns one row or ErrKeyNotFound.
	Get(ctx context.Context, collection string, id int64) (Row, error)
	// GetMulti returns the rows that exist among ids, keyed by id.
	GetMulti(ctx context.Context, collection string, ids []int64) (map[int64]Row, error)
	// Scan streams every row of a collection.
	Scan(ctx context.Context, collection string) (RowIterator, error)
}

// Beginner opens write transactions.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a write transaction. Nothing is visible to readers before Commit.
type Tx interface {
	Upsert(ctx context.Context, row Row) error
	// Delete removes a row; deleting an absent row is not an error.
	Delete(ctx context.Context, collection string, id int64) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RowIterator streams rows from a scan.
type RowIterator interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}
