// Package memory is an in-process authoritative store for tests, local runs
// and embedding the engine without a database.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/huntkil/lexis/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store keeps rows in maps guarded by a RWMutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[int64]db.Row
	closed      bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{collections: make(map[string]map[int64]db.Row)}
}

// Ping reports an error once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: errClosed}
	}
	return nil
}

// Close marks the store closed.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// WaitForReady returns immediately; the store is always ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Get returns one row.
func (s *Store) Get(_ context.Context, collection string, id int64) (db.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.collections[collection][id]
	if !ok {
		return db.Row{}, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
	}
	return clone(r), nil
}

// GetMulti returns the existing rows among ids.
func (s *Store) GetMulti(_ context.Context, collection string, ids []int64) (map[int64]db.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.collections[collection]
	out := make(map[int64]db.Row, len(ids))
	for _, id := range ids {
		if r, ok := rows[id]; ok {
			out[id] = clone(r)
		}
	}
	return out, nil
}

// Scan snapshots a collection ordered by id.
func (s *Store) Scan(_ context.Context, collection string) (db.RowIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]db.Row, 0, len(s.collections[collection]))
	for _, r := range s.collections[collection] {
		rows = append(rows, clone(r))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return db.NewSliceIterator(rows), nil
}

// Begin opens a buffered transaction.
func (s *Store) Begin(_ context.Context) (db.Tx, error) {
	return &tx{store: s}, nil
}

type op struct {
	row    db.Row
	delete bool
}

type tx struct {
	store *Store
	ops   []op
	done  bool
}

func (t *tx) Upsert(_ context.Context, row db.Row) error {
	if t.done {
		return &db.Error{Op: db.OpUpsert, Err: db.ErrTxDone}
	}
	if err := db.ValidateRow(row); err != nil {
		return err
	}
	t.ops = append(t.ops, op{row: clone(row)})
	return nil
}

func (t *tx) Delete(_ context.Context, collection string, id int64) error {
	if t.done {
		return &db.Error{Op: db.OpDelete, Err: db.ErrTxDone}
	}
	t.ops = append(t.ops, op{row: db.Row{Collection: collection, ID: id}, delete: true})
	return nil
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return &db.Error{Op: db.OpCommit, Err: db.ErrTxDone}
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpCommit, Err: errClosed}
	}
	for _, o := range t.ops {
		if o.delete {
			delete(s.collections[o.row.Collection], o.row.ID)
			continue
		}
		c, ok := s.collections[o.row.Collection]
		if !ok {
			c = make(map[int64]db.Row)
			s.collections[o.row.Collection] = c
		}
		c[o.row.ID] = o.row
	}
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	t.done = true
	t.ops = nil
	return nil
}

func clone(r db.Row) db.Row {
	out := db.Row{Collection: r.Collection, ID: r.ID}
	if r.Scalars != nil {
		out.Scalars = make(map[string]string, len(r.Scalars))
		for k, v := range r.Scalars {
			out.Scalars[k] = v
		}
	}
	if r.Lists != nil {
		out.Lists = make(map[string][]string, len(r.Lists))
		for k, v := range r.Lists {
			out.Lists[k] = append([]string(nil), v...)
		}
	}
	return out
}

var errClosed = errors.New("store closed")
