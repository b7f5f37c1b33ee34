package record

import (
	"context"
	"errors"
	"testing"

	"github.com/huntkil/lexis/internal/db"
	"github.com/huntkil/lexis/internal/domain"
	domrec "github.com/huntkil/lexis/internal/domain/record"
)

func TestGet(t *testing.T) {
	var gotCollection string
	s := &mockStore{
		getFn: func(_ context.Context, collection string, id int64) (db.Row, error) {
			gotCollection = collection
			return db.Row{ID: id, Scalars: map[string]string{"title": "apple"}}, nil
		},
	}
	r := New(s)
	rec, err := r.Get(context.Background(), wordType(t), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCollection != "words" {
		t.Errorf("collection = %q, want source collection", gotCollection)
	}
	if v, _ := rec.Scalar("title"); v != "apple" || rec.ID() != 3 {
		t.Errorf("Get() = %+v", rec)
	}
}

func TestGet_NotFound(t *testing.T) {
	r := New(&mockStore{})
	_, err := r.Get(context.Background(), wordType(t), 3)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGet_StoreError(t *testing.T) {
	s := &mockStore{
		getFn: func(context.Context, string, int64) (db.Row, error) {
			return db.Row{}, errors.New("connection refused")
		},
	}
	_, err := New(s).Get(context.Background(), wordType(t), 3)
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	s := &mockStore{
		getMultiFn: func(_ context.Context, _ string, ids []int64) (map[int64]db.Row, error) {
			return map[int64]db.Row{1: {ID: 1, Scalars: map[string]string{"lang": "en"}}}, nil
		},
	}
	m, err := New(s).Load(context.Background(), wordType(t), []int64{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 1 {
		t.Errorf("Load() = %v", m)
	}
}

func TestRows_ProjectsIndexedFields(t *testing.T) {
	s := &mockStore{
		scanFn: func(context.Context, string) (db.RowIterator, error) {
			return db.NewSliceIterator([]db.Row{{
				ID:      5,
				Scalars: map[string]string{"title": "Apple", "lang": "en"},
				Lists:   map[string][]string{"tags": {"fruit", "red"}},
			}}), nil
		},
	}
	it, err := New(s).Rows(context.Background(), wordType(t))
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	defer it.Close()
	if !it.Next() {
		t.Fatal("expected a row")
	}
	row := it.Row()
	if row.ID != 5 || row.Fields["title"] != "Apple" || row.Fields["tags"] != "fruit red" {
		t.Errorf("Row() = %+v", row)
	}
	if _, ok := row.Fields["lang"]; ok {
		t.Error("non-indexed attribute leaked into index row")
	}
	if it.Next() {
		t.Error("expected end of rows")
	}
}

func TestTx_PutDeleteCommit(t *testing.T) {
	mt := &mockTx{}
	s := &mockStore{beginFn: func(context.Context) (db.Tx, error) { return mt, nil }}
	ctx := context.Background()
	et := wordType(t)

	tx, err := New(s).Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rec := domrec.Reconstruct(1, map[string]string{"title": "apple"}, nil)
	if err := tx.Put(ctx, et, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := tx.Delete(ctx, et, 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(mt.upserts) != 1 || mt.upserts[0].Collection != "words" || mt.upserts[0].ID != 1 {
		t.Errorf("upserts = %+v", mt.upserts)
	}
	if len(mt.deletes) != 1 || !mt.committed {
		t.Errorf("deletes = %v committed = %v", mt.deletes, mt.committed)
	}
}

func TestTx_PutError(t *testing.T) {
	mt := &mockTx{upsertErr: db.ErrInvalidRow}
	s := &mockStore{beginFn: func(context.Context) (db.Tx, error) { return mt, nil }}
	ctx := context.Background()
	tx, _ := New(s).Begin(ctx)
	err := tx.Put(ctx, wordType(t), domrec.Reconstruct(1, nil, nil))
	if !errors.Is(err, db.ErrInvalidRow) {
		t.Errorf("error = %v", err)
	}
}
