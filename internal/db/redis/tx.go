package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/huntkil/lexis/internal/db"
)

// Begin opens a transaction that buffers writes and sends them as one
// MULTI/EXEC block on Commit.
func (s *Store) Begin(_ context.Context) (db.Tx, error) {
	return &tx{store: s}, nil
}

type pending struct {
	key  string
	hash map[string]string // nil = delete
}

type tx struct {
	store *Store
	ops   []pending
	done  bool
}

func (t *tx) Upsert(_ context.Context, row db.Row) error {
	if t.done {
		return &db.Error{Op: db.OpHSet, Err: db.ErrTxDone}
	}
	if err := db.ValidateRow(row); err != nil {
		return err
	}
	h, err := encodeHash(row)
	if err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	t.ops = append(t.ops, pending{key: t.store.key(row.Collection, row.ID), hash: h})
	return nil
}

func (t *tx) Delete(_ context.Context, collection string, id int64) error {
	if t.done {
		return &db.Error{Op: db.OpDel, Err: db.ErrTxDone}
	}
	t.ops = append(t.ops, pending{key: t.store.key(collection, id)})
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return &db.Error{Op: db.OpExec, Err: db.ErrTxDone}
	}
	t.done = true
	if len(t.ops) == 0 {
		return nil
	}

	b := t.store.b()
	cmds := make([]rueidis.Completed, 0, 2*len(t.ops)+2)
	cmds = append(cmds, b.Multi().Build())
	for _, op := range t.ops {
		// DEL before HSET so attributes dropped from the row do not linger.
		cmds = append(cmds, b.Del().Key(op.key).Build())
		if op.hash == nil {
			continue
		}
		hset := b.Hset().Key(op.key).FieldValue()
		for k, v := range op.hash {
			hset = hset.FieldValue(k, v)
		}
		cmds = append(cmds, hset.Build())
	}
	cmds = append(cmds, b.Exec().Build())
	t.ops = nil

	results := t.store.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: fmt.Errorf("command %d: %w", i, err)}
		}
	}
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	t.done = true
	t.ops = nil
	return nil
}
