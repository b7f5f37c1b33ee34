package lexis

import (
	"context"
	"errors"
	"fmt"

	"github.com/huntkil/lexis/internal/db"
	"github.com/huntkil/lexis/internal/db/memory"
	"github.com/huntkil/lexis/internal/domain/entity"
	domrec "github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/index"
)

// Source is the read side of the authoritative store.
type Source interface {
	// Load returns the records that exist among ids, keyed by id.
	Load(ctx context.Context, collection string, ids []int64) (map[int64]Record, error)
	// Scan calls fn for every record of collection and stops at the first error.
	Scan(ctx context.Context, collection string, fn func(Record) error) error
}

// Writer is a Source that typed indexes can write through.
type Writer interface {
	Source
	Put(ctx context.Context, collection string, rec Record) error
	Delete(ctx context.Context, collection string, id int64) error
}

// MemorySource is an in-process authoritative store.
type MemorySource struct {
	store *memory.Store
}

var _ Writer = (*MemorySource)(nil)

// NewMemorySource creates an empty in-memory store.
func NewMemorySource() *MemorySource {
	return &MemorySource{store: memory.NewStore()}
}

// Put upserts one record of collection.
func (m *MemorySource) Put(ctx context.Context, collection string, rec Record) error {
	r, err := domrec.New(rec.ID, rec.Scalars, rec.Lists)
	if err != nil {
		return fmt.Errorf("put %s: %w", collection, err)
	}
	return m.apply(ctx, func(tx db.Tx) error {
		return tx.Upsert(ctx, db.Row{Collection: collection, ID: r.ID(), Scalars: r.Scalars(), Lists: r.Lists()})
	})
}

// Delete removes one record of collection. Deleting an absent record is a no-op.
func (m *MemorySource) Delete(ctx context.Context, collection string, id int64) error {
	return m.apply(ctx, func(tx db.Tx) error { return tx.Delete(ctx, collection, id) })
}

func (m *MemorySource) apply(ctx context.Context, fn func(db.Tx) error) error {
	tx, err := m.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns the existing records among ids.
func (m *MemorySource) Load(ctx context.Context, collection string, ids []int64) (map[int64]Record, error) {
	rows, err := m.store.GetMulti(ctx, collection, ids)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	out := make(map[int64]Record, len(rows))
	for id, r := range rows {
		out[id] = Record{ID: r.ID, Scalars: r.Scalars, Lists: r.Lists}
	}
	return out, nil
}

// Scan visits the records of collection in id order.
func (m *MemorySource) Scan(ctx context.Context, collection string, fn func(Record) error) error {
	it, err := m.store.Scan(ctx, collection)
	if err != nil {
		return fmt.Errorf("scan %s: %w", collection, err)
	}
	defer func() { _ = it.Close() }()
	for it.Next() {
		r := it.Row()
		if err := fn(Record{ID: r.ID, Scalars: r.Scalars, Lists: r.Lists}); err != nil {
			return err
		}
	}
	return it.Err()
}

// storeFor exposes a Source to the record repository. MemorySource hands
// over its store directly.
func storeFor(s Source) sourceReader {
	if m, ok := s.(*MemorySource); ok {
		return m.store
	}
	return sourceStore{src: s}
}

// sourceReader matches the store the record repository consumes.
type sourceReader interface {
	db.Reader
	db.Beginner
}

// sourceStore adapts a caller Source to the read-only store interface.
type sourceStore struct {
	src Source
}

var errReadOnly = errors.New("lexis: source is read-only")

func (s sourceStore) Get(ctx context.Context, collection string, id int64) (db.Row, error) {
	recs, err := s.src.Load(ctx, collection, []int64{id})
	if err != nil {
		return db.Row{}, fmt.Errorf("get %s/%d: %w", collection, id, err)
	}
	r, ok := recs[id]
	if !ok {
		return db.Row{}, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
	}
	return toRow(collection, r), nil
}

func (s sourceStore) GetMulti(ctx context.Context, collection string, ids []int64) (map[int64]db.Row, error) {
	recs, err := s.src.Load(ctx, collection, ids)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	out := make(map[int64]db.Row, len(recs))
	for id, r := range recs {
		out[id] = toRow(collection, r)
	}
	return out, nil
}

// Scan buffers the whole collection before the rebuild consumes it.
func (s sourceStore) Scan(ctx context.Context, collection string) (db.RowIterator, error) {
	var rows []db.Row
	err := s.src.Scan(ctx, collection, func(r Record) error {
		rows = append(rows, toRow(collection, r))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}
	return db.NewSliceIterator(rows), nil
}

func (s sourceStore) Begin(context.Context) (db.Tx, error) {
	return nil, errReadOnly
}

func toRow(collection string, r Record) db.Row {
	return db.Row{Collection: collection, ID: r.ID, Scalars: r.Scalars, Lists: r.Lists}
}

// noSource fails every rebuild of an engine created without WithSource.
type noSource struct{}

func (noSource) Rows(context.Context, entity.Type) (index.RowIterator, error) {
	return nil, errors.New("no source configured")
}
