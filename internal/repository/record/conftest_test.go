package record

import (
	"context"
	"testing"

	"github.com/huntkil/lexis/internal/db"
	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/entity/field"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn      func(ctx context.Context, collection string, id int64) (db.Row, error)
	getMultiFn func(ctx context.Context, collection string, ids []int64) (map[int64]db.Row, error)
	scanFn     func(ctx context.Context, collection string) (db.RowIterator, error)
	beginFn    func(ctx context.Context) (db.Tx, error)
}

func (m *mockStore) Get(ctx context.Context, collection string, id int64) (db.Row, error) {
	if m.getFn != nil {
		return m.getFn(ctx, collection, id)
	}
	return db.Row{}, db.ErrKeyNotFound
}

func (m *mockStore) GetMulti(ctx context.Context, collection string, ids []int64) (map[int64]db.Row, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, collection, ids)
	}
	return map[int64]db.Row{}, nil
}

func (m *mockStore) Scan(ctx context.Context, collection string) (db.RowIterator, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, collection)
	}
	return db.NewSliceIterator(nil), nil
}

func (m *mockStore) Begin(ctx context.Context) (db.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

// mockTx records staged operations.
type mockTx struct {
	upserts   []db.Row
	deletes   []int64
	committed bool
	upsertErr error
}

func (m *mockTx) Upsert(_ context.Context, row db.Row) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, row)
	return nil
}

func (m *mockTx) Delete(_ context.Context, _ string, id int64) error {
	m.deletes = append(m.deletes, id)
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(_ context.Context) error { return nil }

func wordType(t *testing.T) entity.Type {
	t.Helper()
	et, err := entity.New("word", "words",
		[]field.Field{field.Reconstruct("title", 2), field.Reconstruct("tags", 1)},
		[]string{"lang"})
	if err != nil {
		t.Fatalf("entity.New: %v", err)
	}
	return et
}
