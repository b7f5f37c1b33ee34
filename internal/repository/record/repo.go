package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/huntkil/lexis/internal/db"
	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/domain/entity"
	domrec "github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/index"
)

// store is the consumer interface for records (ISP).
type store interface {
	Get(ctx context.Context, collection string, id int64) (db.Row, error)
	GetMulti(ctx context.Context, collection string, ids []int64) (map[int64]db.Row, error)
	Scan(ctx context.Context, collection string) (db.RowIterator, error)
	Begin(ctx context.Context) (db.Tx, error)
}

// Repo maps authoritative rows to domain records of an entity type.
type Repo struct {
	store store
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns one record of et.
func (r *Repo) Get(ctx context.Context, et entity.Type, id int64) (domrec.Record, error) {
	row, err := r.store.Get(ctx, et.Source(), id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domrec.Record{}, domain.ErrNotFound
		}
		return domrec.Record{}, fmt.Errorf("get %s/%d: %w", et.Source(), id, err)
	}
	return toDomain(row), nil
}

// Load returns the existing records among ids, keyed by id.
func (r *Repo) Load(ctx context.Context, et entity.Type, ids []int64) (map[int64]domrec.Record, error) {
	rows, err := r.store.GetMulti(ctx, et.Source(), ids)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", et.Source(), err)
	}
	out := make(map[int64]domrec.Record, len(rows))
	for id, row := range rows {
		out[id] = toDomain(row)
	}
	return out, nil
}

// Rows opens a full scan of et's collection shaped for index rebuilds.
func (r *Repo) Rows(ctx context.Context, et entity.Type) (index.RowIterator, error) {
	it, err := r.store.Scan(ctx, et.Source())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", et.Source(), err)
	}
	names := make([]string, 0, len(et.Fields()))
	for _, f := range et.Fields() {
		names = append(names, f.Name())
	}
	return &indexRows{it: it, fields: names}, nil
}

// Begin opens a write transaction.
func (r *Repo) Begin(ctx context.Context) (*Tx, error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx is a record write transaction.
type Tx struct {
	tx db.Tx
}

// Put stages an upsert of rec into et's collection.
func (t *Tx) Put(ctx context.Context, et entity.Type, rec domrec.Record) error {
	row := db.Row{
		Collection: et.Source(),
		ID:         rec.ID(),
		Scalars:    rec.Scalars(),
		Lists:      rec.Lists(),
	}
	if err := t.tx.Upsert(ctx, row); err != nil {
		return fmt.Errorf("upsert %s/%d: %w", et.Source(), rec.ID(), err)
	}
	return nil
}

// Delete stages a delete.
func (t *Tx) Delete(ctx context.Context, et entity.Type, id int64) error {
	if err := t.tx.Delete(ctx, et.Source(), id); err != nil {
		return fmt.Errorf("delete %s/%d: %w", et.Source(), id, err)
	}
	return nil
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func toDomain(row db.Row) domrec.Record {
	return domrec.Reconstruct(row.ID, row.Scalars, row.Lists)
}

// indexRows adapts a db scan to index.RowIterator.
type indexRows struct {
	it     db.RowIterator
	fields []string
}

func (r *indexRows) Next() bool { return r.it.Next() }

func (r *indexRows) Row() index.Row {
	row := r.it.Row()
	return index.Row{ID: row.ID, Fields: toDomain(row).Text(r.fields)}
}

func (r *indexRows) Err() error   { return r.it.Err() }
func (r *indexRows) Close() error { return r.it.Close() }
