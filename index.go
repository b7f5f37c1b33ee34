package lexis

import (
	"context"
	"errors"
	"fmt"
)

// TypedIndex is a generic, schema-first entity type backed by an Engine.
// Schema is inferred from T's struct tags at construction time.
type TypedIndex[T any] struct {
	name   string
	source string
	engine *Engine
	meta   *schemaMeta
}

// IndexOption customizes the entity type registered by NewIndex.
type IndexOption func(*indexOptions)

type indexOptions struct {
	source string
	url    string
}

// WithCollection sets the authoritative collection name (default: the index name).
func WithCollection(name string) IndexOption {
	return func(o *indexOptions) { o.source = name }
}

// WithURL sets the result url template. Placeholders: {type}, {id}, {slug}.
func WithURL(pattern string) IndexOption {
	return func(o *indexOptions) { o.url = pattern }
}

// NewIndex parses T's lexis tags and registers the entity type name.
func NewIndex[T any](engine *Engine, name string, opts ...IndexOption) (*TypedIndex[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", name, err)
	}
	var o indexOptions
	for _, fn := range opts {
		fn(&o)
	}
	if err := engine.RegisterEntityType(meta.entityType(name, o)); err != nil {
		return nil, fmt.Errorf("new index %q: %w", name, err)
	}
	source := o.source
	if source == "" {
		source = name
	}
	return &TypedIndex[T]{name: name, source: source, engine: engine, meta: meta}, nil
}

// Name returns the entity type name.
func (idx *TypedIndex[T]) Name() string { return idx.name }

// Put indexes item. When the engine reads a Writer source, the record is
// stored there first and the index change is applied after it commits.
func (idx *TypedIndex[T]) Put(ctx context.Context, item T) error {
	rec, text := idx.meta.toRecord(item)

	tx := idx.engine.Begin()
	defer tx.Rollback()
	if err := tx.OnWrite(ctx, idx.name, rec.ID, text); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	if w, ok := idx.engine.source.(Writer); ok {
		if err := w.Put(ctx, idx.source, rec); err != nil {
			return fmt.Errorf("put: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

// Delete removes the item with id from the index and a Writer source.
func (idx *TypedIndex[T]) Delete(ctx context.Context, id int64) error {
	tx := idx.engine.Begin()
	defer tx.Rollback()
	if err := tx.OnDelete(ctx, idx.name, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if w, ok := idx.engine.source.(Writer); ok {
		if err := w.Delete(ctx, idx.source, id); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Get loads one item from the engine's source.
func (idx *TypedIndex[T]) Get(ctx context.Context, id int64) (T, error) {
	var zero T
	if idx.engine.source == nil {
		return zero, errors.New("get: no source configured")
	}
	recs, err := idx.engine.source.Load(ctx, idx.source, []int64{id})
	if err != nil {
		return zero, fmt.Errorf("get: %w", err)
	}
	rec, ok := recs[id]
	if !ok {
		return zero, fmt.Errorf("get %s #%d: %w", idx.name, id, ErrNotFound)
	}
	item, ok := idx.meta.fromRecord(id, rec.Scalars, rec.Lists).(T)
	if !ok {
		return zero, fmt.Errorf("get: type assertion failed")
	}
	return item, nil
}

// Rebuild rebuilds this type from the engine's source.
func (idx *TypedIndex[T]) Rebuild(ctx context.Context) (RebuildOutcome, error) {
	return idx.engine.Rebuild(ctx, idx.name)
}

// Search returns a fluent search builder scoped to this type.
func (idx *TypedIndex[T]) Search() *SearchBuilder[T] {
	return &SearchBuilder[T]{idx: idx}
}
