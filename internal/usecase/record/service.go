package record

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/domain/batch"
	"github.com/huntkil/lexis/internal/domain/entity"
	domrec "github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/index"
	"github.com/huntkil/lexis/internal/metrics"
)

// Service writes records to the authoritative store and keeps the entity
// indexes in sync. Index changes are staged inside the store transaction
// (a staging error aborts the write) and applied only after the store
// commit succeeds.
type Service struct {
	store   Store
	indexes Indexes
	locks   stripes
	logger  *zap.Logger
}

// New creates a record write service.
func New(store Store, indexes Indexes, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, indexes: indexes, logger: logger}
}

// Put upserts rec as a record of entityType.
func (s *Service) Put(ctx context.Context, entityType string, rec domrec.Record) error {
	return s.do(ctx, domain.OpWrite, entityType, rec.ID(),
		func(tx Tx, itx *index.Tx, et entity.Type) error {
			if err := tx.Put(ctx, et, rec); err != nil {
				return err
			}
			return itx.OnWrite(ctx, et.Name(), rec.ID(), rec.Text(fieldNames(et)))
		})
}

// Delete removes a record. Deleting an absent record is a no-op.
func (s *Service) Delete(ctx context.Context, entityType string, id int64) error {
	return s.do(ctx, domain.OpDelete, entityType, id,
		func(tx Tx, itx *index.Tx, et entity.Type) error {
			if err := tx.Delete(ctx, et, id); err != nil {
				return err
			}
			return itx.OnDelete(ctx, et.Name(), id)
		})
}

// PutBatch upserts recs one by one. Each record commits on its own, so a
// failed item does not roll back the others.
func (s *Service) PutBatch(ctx context.Context, entityType string, recs []domrec.Record) []batch.Result {
	results := make([]batch.Result, len(recs))
	for i, rec := range recs {
		if err := s.Put(ctx, entityType, rec); err != nil {
			results[i] = batch.NewError(rec.ID(), err)
			continue
		}
		results[i] = batch.NewOK(rec.ID())
	}
	return results
}

// DeleteBatch removes records by id, one commit per id.
func (s *Service) DeleteBatch(ctx context.Context, entityType string, ids []int64) []batch.Result {
	results := make([]batch.Result, len(ids))
	for i, id := range ids {
		if err := s.Delete(ctx, entityType, id); err != nil {
			results[i] = batch.NewError(id, err)
			continue
		}
		results[i] = batch.NewOK(id)
	}
	return results
}

func (s *Service) do(
	ctx context.Context, op, entityType string, id int64,
	stage func(tx Tx, itx *index.Tx, et entity.Type) error,
) (err error) {
	defer func() {
		metrics.SyncEventsTotal.WithLabelValues(entityType, op, metrics.StatusOf(err)).Inc()
		if err != nil && !errors.Is(err, domain.ErrUnknownEntityType) {
			s.logger.Warn("record write failed",
				zap.String("op", op),
				zap.String("entity_type", entityType),
				zap.Int64("doc_id", id),
				zap.Error(err),
			)
		}
	}()

	ix, err := s.indexes.Route(entityType)
	if err != nil {
		return fmt.Errorf("route: %w", err)
	}
	if id <= 0 {
		return domain.NewOpError(op, entityType, id, fmt.Errorf("%w: record id must be positive", domain.ErrInvalidQuery))
	}

	unlock := s.locks.lock(entityType, id)
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	itx := s.indexes.Begin()

	if err = stage(tx, itx, ix.Config()); err != nil {
		itx.Rollback()
		if rerr := tx.Rollback(ctx); rerr != nil {
			s.logger.Warn("rollback failed", zap.String("entity_type", entityType), zap.Error(rerr))
		}
		return fmt.Errorf("stage: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		itx.Rollback()
		return fmt.Errorf("commit record: %w", err)
	}

	if err = itx.Commit(); err != nil {
		// The store already holds the new state; the index must be rebuilt.
		ix.Invalidate("sync apply failed after store commit")
		return domain.NewOpError(domain.OpCommit, entityType, id, err)
	}

	st := ix.Stats()
	metrics.ObserveIndex(entityType, st.Documents, st.Terms)
	return nil
}

func fieldNames(et entity.Type) []string {
	names := make([]string, 0, len(et.Fields()))
	for _, f := range et.Fields() {
		names = append(names, f.Name())
	}
	return names
}
