package lexis

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/domain/search/request"
	"github.com/huntkil/lexis/internal/index"
	reporecord "github.com/huntkil/lexis/internal/repository/record"
	"github.com/huntkil/lexis/internal/text/highlight"
	"github.com/huntkil/lexis/internal/text/synonym"
	rebuilduc "github.com/huntkil/lexis/internal/usecase/rebuild"
	searchuc "github.com/huntkil/lexis/internal/usecase/search"
	suggestuc "github.com/huntkil/lexis/internal/usecase/suggest"
)

// Engine is the in-process search engine: one index per registered entity
// type, kept in sync by OnWrite and OnDelete from the caller's write path.
type Engine struct {
	registry *index.Registry
	source   Source
	limits   request.Limits
	logger   *zap.Logger

	searchSvc  *searchuc.Service
	suggestSvc *suggestuc.Service
	rebuildSvc *rebuilduc.Service
}

// New creates an Engine. Register every entity type before the first
// query or sync event; the registry is sealed afterwards.
func New(opts ...Option) *Engine {
	cfg := &engineConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	registry := index.NewRegistry(index.Params{K1: cfg.k1, B: cfg.b})

	// Pass nil interface (not typed nil pointer!) when no source is set.
	var records searchuc.Records
	var rows rebuilduc.Source = noSource{}
	if cfg.source != nil {
		repo := reporecord.New(storeFor(cfg.source))
		records = repo
		rows = repo
	}

	searchOpts := []searchuc.Option{
		searchuc.WithHighlighter(highlight.New(cfg.highlightPre, cfg.highlightPost)),
		searchuc.WithLogger(cfg.logger),
	}
	if len(cfg.synonyms) > 0 {
		searchOpts = append(searchOpts, searchuc.WithSynonyms(synonym.New(cfg.synonyms)))
	}

	return &Engine{
		registry:   registry,
		source:     cfg.source,
		limits:     request.Limits{Default: cfg.defaultLimit, Max: cfg.maxLimit},
		logger:     cfg.logger,
		searchSvc:  searchuc.New(registry, records, searchOpts...),
		suggestSvc: suggestuc.New(registry, cfg.logger),
		rebuildSvc: rebuilduc.New(registry, rows, cfg.parallelism, cfg.logger),
	}
}

// RegisterEntityType adds a searchable type with an empty index.
// It fails with ErrRegistrySealed once the engine has served a query or
// sync event, and with ErrInvalidSchema for an invalid definition.
func (e *Engine) RegisterEntityType(t EntityType) error {
	et, err := toEntityType(t)
	if err != nil {
		return domain.NewOpError(domain.OpRegister, t.Name, 0, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err))
	}
	if _, err := e.registry.Register(et); err != nil {
		return fmt.Errorf("register entity type: %w", err)
	}
	return nil
}

// EntityTypes returns the registered type names, sorted.
func (e *Engine) EntityTypes() []string {
	return e.registry.Types()
}

// OnWrite upserts the index entry of id from the indexed field text.
// Call it inside the transaction that writes the record; on error, roll
// that transaction back.
func (e *Engine) OnWrite(ctx context.Context, entityType string, id int64, fields map[string]string) error {
	ix, err := e.registry.Route(entityType)
	if err != nil {
		return fmt.Errorf("on write: %w", err)
	}
	if err := ix.OnWrite(ctx, id, fields); err != nil {
		return fmt.Errorf("on write: %w", err)
	}
	return nil
}

// OnDelete removes the index entry of id. Removing an absent id is a no-op.
func (e *Engine) OnDelete(ctx context.Context, entityType string, id int64) error {
	ix, err := e.registry.Route(entityType)
	if err != nil {
		return fmt.Errorf("on delete: %w", err)
	}
	if err := ix.OnDelete(ctx, id); err != nil {
		return fmt.Errorf("on delete: %w", err)
	}
	return nil
}

// Begin opens a sync transaction collecting the events of one store
// transaction. Commit it after the store commit succeeds.
func (e *Engine) Begin() *SyncTx {
	return &SyncTx{tx: e.registry.Begin()}
}

// Stats reports per-type and aggregate index statistics.
func (e *Engine) Stats() Stats {
	return fromSummary(e.registry.Stats())
}

// Rebuild replaces the index of one type with a full scan of its source
// collection. On failure the previous index is kept.
func (e *Engine) Rebuild(ctx context.Context, entityType string) (RebuildOutcome, error) {
	o, err := e.rebuildSvc.Rebuild(ctx, entityType)
	if err != nil {
		return fromOutcome(o), fmt.Errorf("rebuild: %w", err)
	}
	return fromOutcome(o), nil
}

// RebuildAll rebuilds every registered type. One type's failure never
// aborts the others; the report lists each outcome.
func (e *Engine) RebuildAll(ctx context.Context) RebuildReport {
	r := e.rebuildSvc.RebuildAll(ctx)
	out := RebuildReport{Outcomes: make([]RebuildOutcome, len(r.Outcomes))}
	for i, o := range r.Outcomes {
		out.Outcomes[i] = fromOutcome(o)
		out.err = multierr.Append(out.err, o.Err)
	}
	return out
}

// Invalidate marks a type's index corrupted. Queries report it unavailable
// until the next successful Rebuild.
func (e *Engine) Invalidate(entityType, reason string) error {
	ix, err := e.registry.Route(entityType)
	if err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	ix.Invalidate(reason)
	e.logger.Warn("index invalidated", zap.String("entity_type", entityType), zap.String("reason", reason))
	return nil
}
