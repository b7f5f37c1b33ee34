package rebuild

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/metrics"
)

var tracer = otel.Tracer("lexis/usecase/rebuild")

// DefaultParallelism bounds concurrent rebuilds in RebuildAll.
const DefaultParallelism = 2

// Service rebuilds entity indexes from full scans of the authoritative store.
type Service struct {
	indexes     Indexes
	source      Source
	parallelism int
	logger      *zap.Logger
}

// New creates a rebuild service. parallelism <= 0 uses DefaultParallelism.
func New(indexes Indexes, source Source, parallelism int, logger *zap.Logger) *Service {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{indexes: indexes, source: source, parallelism: parallelism, logger: logger}
}

// Rebuild replaces the index of one type. On failure the previous index
// stays in place and the error wraps ErrRebuildFailed.
func (s *Service) Rebuild(ctx context.Context, entityType string) (Outcome, error) {
	o := s.rebuild(ctx, entityType)
	return o, o.Err
}

// RebuildAll rebuilds every registered type, at most parallelism at a time.
// Failures are collected in the report; the remaining types still run.
func (s *Service) RebuildAll(ctx context.Context) Report {
	ctx, span := tracer.Start(ctx, "RebuildAll")
	defer span.End()

	types := s.indexes.Types()
	outcomes := make([]Outcome, len(types))

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, name := range types {
		g.Go(func() error {
			outcomes[i] = s.rebuild(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	r := Report{Outcomes: outcomes}
	if err := r.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d types failed", len(r.Failed()), len(types)))
	} else {
		span.SetStatus(codes.Ok, fmt.Sprintf("rebuilt %d types", len(types)))
	}
	return r
}

func (s *Service) rebuild(ctx context.Context, entityType string) (o Outcome) {
	start := time.Now()
	o.EntityType = entityType

	ctx, span := tracer.Start(ctx, "Rebuild",
		trace.WithAttributes(attribute.String("entity_type", entityType)),
	)
	defer span.End()

	defer func() {
		o.Duration = time.Since(start)
		metrics.RebuildTotal.WithLabelValues(entityType, metrics.StatusOf(o.Err)).Inc()
		metrics.RebuildDuration.WithLabelValues(entityType).Observe(o.Duration.Seconds())
	}()

	ix, err := s.indexes.Route(entityType)
	if err != nil {
		o.Err = fmt.Errorf("route: %w", err)
		span.RecordError(o.Err)
		span.SetStatus(codes.Error, "unknown entity type")
		return o
	}

	rows, err := s.source.Rows(ctx, ix.Config())
	if err != nil {
		o.Err = domain.NewOpError(domain.OpRebuild, entityType, 0,
			fmt.Errorf("%w: open scan: %w", domain.ErrRebuildFailed, err))
		span.RecordError(o.Err)
		span.SetStatus(codes.Error, "failed to open scan")
		s.logger.Error("rebuild failed", zap.String("entity_type", entityType), zap.Error(o.Err))
		return o
	}
	n, err := ix.Rebuild(ctx, rows)
	if err != nil {
		o.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "rebuild failed")
		s.logger.Error("rebuild failed", zap.String("entity_type", entityType), zap.Error(err))
		return o
	}

	o.Documents = n
	st := ix.Stats()
	metrics.ObserveIndex(entityType, st.Documents, st.Terms)
	span.SetAttributes(attribute.Int("documents", n))
	span.SetStatus(codes.Ok, fmt.Sprintf("indexed %d documents", n))
	s.logger.Info("rebuild completed",
		zap.String("entity_type", entityType),
		zap.Int("documents", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return o
}
