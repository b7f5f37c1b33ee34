package index

import (
	"context"
	"sort"
	"sync"

	"github.com/huntkil/lexis/internal/domain"
)

// Tx collects sync events raised inside one authoritative store transaction.
// Events are validated when staged, so a failure surfaces while the caller
// can still roll its write back. Commit makes every staged change visible;
// each document flips from its old to its new entry atomically.
type Tx struct {
	registry *Registry

	mu     sync.Mutex
	staged map[string][]change
	done   bool
}

// OnWrite stages an upsert of docID in entityType.
func (tx *Tx) OnWrite(ctx context.Context, entityType string, docID int64, values map[string]string) error {
	return tx.stage(ctx, domain.OpWrite, entityType, docID, func(x *EntityIndex) (change, error) {
		return x.stageWrite(docID, values)
	})
}

// OnDelete stages a delete of docID in entityType.
func (tx *Tx) OnDelete(ctx context.Context, entityType string, docID int64) error {
	return tx.stage(ctx, domain.OpDelete, entityType, docID, func(x *EntityIndex) (change, error) {
		return x.stageDelete(docID)
	})
}

func (tx *Tx) stage(
	ctx context.Context, op, entityType string, docID int64,
	build func(*EntityIndex) (change, error),
) error {
	if err := ctx.Err(); err != nil {
		return domain.NewOpError(op, entityType, docID, err)
	}
	x, err := tx.registry.Route(entityType)
	if err != nil {
		return domain.NewOpError(op, entityType, docID, domain.ErrUnknownEntityType)
	}
	c, err := build(x)
	if err != nil {
		return err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return domain.NewOpError(op, entityType, docID, domain.ErrTxDone)
	}
	tx.staged[entityType] = append(tx.staged[entityType], c)
	return nil
}

// Len returns the number of staged events.
func (tx *Tx) Len() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	n := 0
	for _, cs := range tx.staged {
		n += len(cs)
	}
	return n
}

// Commit applies the staged events, type by type in name order.
// It must be called after the authoritative write committed.
func (tx *Tx) Commit() error {
	tx.mu.Lock()
	if tx.done {
		tx.mu.Unlock()
		return domain.NewOpError(domain.OpCommit, "", 0, domain.ErrTxDone)
	}
	tx.done = true
	staged := tx.staged
	tx.staged = nil
	tx.mu.Unlock()

	types := make([]string, 0, len(staged))
	for t := range staged {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		x, err := tx.registry.Route(t)
		if err != nil {
			return err
		}
		x.apply(staged[t])
	}
	return nil
}

// Rollback discards the staged events. Calling it after Commit is a no-op.
func (tx *Tx) Rollback() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.done = true
	tx.staged = nil
}
