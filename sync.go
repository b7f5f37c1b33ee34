package lexis

import (
	"context"
	"fmt"

	"github.com/huntkil/lexis/internal/index"
)

// SyncTx stages the index events of one authoritative store transaction.
// Events are validated when staged; nothing is visible to queries before
// Commit.
//
//	tx := engine.Begin()
//	defer tx.Rollback()
//	if err := tx.OnWrite(ctx, "word", 7, fields); err != nil {
//		return err // roll the store transaction back too
//	}
//	if err := storeTx.Commit(); err != nil {
//		return err
//	}
//	return tx.Commit()
type SyncTx struct {
	tx *index.Tx
}

// OnWrite stages an upsert of id.
func (t *SyncTx) OnWrite(ctx context.Context, entityType string, id int64, fields map[string]string) error {
	if err := t.tx.OnWrite(ctx, entityType, id, fields); err != nil {
		return fmt.Errorf("stage write: %w", err)
	}
	return nil
}

// OnDelete stages a delete of id.
func (t *SyncTx) OnDelete(ctx context.Context, entityType string, id int64) error {
	if err := t.tx.OnDelete(ctx, entityType, id); err != nil {
		return fmt.Errorf("stage delete: %w", err)
	}
	return nil
}

// Len returns the number of staged events.
func (t *SyncTx) Len() int { return t.tx.Len() }

// Commit applies every staged event. Call it once the store committed.
func (t *SyncTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit sync: %w", err)
	}
	return nil
}

// Rollback discards the staged events. It is a no-op after Commit.
func (t *SyncTx) Rollback() { t.tx.Rollback() }
