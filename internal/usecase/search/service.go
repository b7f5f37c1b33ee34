package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/domain/search/filter"
	"github.com/huntkil/lexis/internal/domain/search/order"
	"github.com/huntkil/lexis/internal/domain/search/request"
	"github.com/huntkil/lexis/internal/domain/search/result"
	"github.com/huntkil/lexis/internal/index"
	"github.com/huntkil/lexis/internal/metrics"
	"github.com/huntkil/lexis/internal/text/highlight"
	"github.com/huntkil/lexis/internal/text/tokenizer"
)

var tracer = otel.Tracer("lexis/usecase/search")

// Service plans and executes queries across entity indexes.
type Service struct {
	indexes     Indexes
	records     Records
	synonyms    Expander
	highlighter highlight.Highlighter
	slowQuery   time.Duration
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSynonyms enables query expansion.
func WithSynonyms(e Expander) Option {
	return func(s *Service) { s.synonyms = e }
}

// WithHighlighter overrides the highlight markers.
func WithHighlighter(h highlight.Highlighter) Option {
	return func(s *Service) { s.highlighter = h }
}

// WithSlowQuery logs searches slower than d. Zero disables.
func WithSlowQuery(d time.Duration) Option {
	return func(s *Service) { s.slowQuery = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a search service. records may be nil: attributes are then
// read from the indexed field text.
func New(indexes Indexes, records Records, opts ...Option) *Service {
	s := &Service{
		indexes:     indexes,
		records:     records,
		highlighter: highlight.New("", ""),
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search runs req against its target types and returns one page.
func (s *Service) Search(ctx context.Context, req request.Request) (page result.Page, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("query", req.Query()),
			attribute.Int("limit", req.Limit()),
			attribute.Int("offset", req.Offset()),
			attribute.String("sort", string(req.Order())),
		),
	)
	defer func() {
		elapsed := time.Since(start)
		metrics.SearchDuration.WithLabelValues(metrics.StatusOf(err)).Observe(elapsed.Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "search failed")
		} else {
			metrics.SearchResults.Observe(float64(page.Total()))
			span.SetAttributes(attribute.Int("total", page.Total()))
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		if s.slowQuery > 0 && elapsed >= s.slowQuery {
			s.logger.Warn("slow search",
				zap.String("query", req.Query()),
				zap.Duration("elapsed", elapsed),
				zap.Int("total", page.Total()),
			)
		}
	}()

	targets, err := s.resolveTargets(req)
	if err != nil {
		return result.Page{}, err
	}
	if err = validateFilters(req.Filters(), targets); err != nil {
		return result.Page{}, err
	}

	terms := tokenizer.Unique(tokenizer.Tokenize(req.Query()))
	if s.synonyms != nil {
		terms = s.synonyms.Expand(terms)
	}
	span.SetAttributes(attribute.Int("term_count", len(terms)))
	if len(terms) == 0 {
		return result.Empty(time.Since(start)), nil
	}

	perType := make([][]candidate, len(targets))
	var (
		mu          sync.Mutex
		unavailable []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, ix := range targets {
		g.Go(func() error {
			cs, err := s.searchType(gctx, ix, terms, req)
			if errors.Is(err, domain.ErrIndexUnavailable) {
				mu.Lock()
				unavailable = append(unavailable, ix.Name())
				mu.Unlock()
				s.logger.Warn("entity index unavailable", zap.String("entity_type", ix.Name()), zap.Error(err))
				return nil
			}
			if err != nil {
				return err
			}
			perType[i] = cs
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return result.Page{}, fmt.Errorf("search: %w", err)
	}

	sort.Strings(unavailable)
	if len(targets) > 0 && len(unavailable) == len(targets) {
		return result.Page{}, domain.NewOpError(domain.OpSearch, strings.Join(unavailable, ","), 0,
			domain.ErrIndexUnavailable)
	}

	var merged []candidate
	for _, cs := range perType {
		merged = append(merged, cs...)
	}
	sortCandidates(merged, req.Order())

	results := paginate(merged, req.Offset(), req.Limit())
	return result.NewPage(results, req.Offset(), len(merged), time.Since(start), unavailable), nil
}

// resolveTargets routes the requested types, or every registered type.
func (s *Service) resolveTargets(req request.Request) ([]*index.EntityIndex, error) {
	names := req.Types()
	if len(names) == 0 {
		names = s.indexes.Types()
	}
	out := make([]*index.EntityIndex, 0, len(names))
	for _, n := range names {
		ix, err := s.indexes.Route(n)
		if err != nil {
			return nil, fmt.Errorf("resolve target: %w", err)
		}
		out = append(out, ix)
	}
	return out, nil
}

// validateFilters rejects filters on types outside the target set and on
// attributes a type does not declare filterable.
func validateFilters(filters filter.Set, targets []*index.EntityIndex) error {
	if filters.IsEmpty() {
		return nil
	}
	byName := make(map[string]entity.Type, len(targets))
	for _, ix := range targets {
		byName[ix.Name()] = ix.Config()
	}
	for _, typ := range filters.Types() {
		et, ok := byName[typ]
		if !ok {
			return fmt.Errorf("%w: filter on %q which is not a target type", domain.ErrInvalidQuery, typ)
		}
		for _, c := range filters.For(typ) {
			if !et.IsFilterable(c.Key()) {
				return fmt.Errorf("%w: attribute %q of %q is not filterable", domain.ErrInvalidQuery, c.Key(), typ)
			}
		}
	}
	return nil
}

// needsRecords reports whether live attributes must be read for et.
func needsRecords(et entity.Type, conds []filter.Condition, o order.Order) bool {
	switch {
	case len(conds) > 0:
		return true
	case o == order.Date && len(et.DateFields()) > 0:
		return true
	case et.NameField() != "" && (o == order.Name || strings.Contains(et.URLPattern(), "{slug}")):
		return true
	}
	return false
}

// searchType matches, filters and decorates the candidates of one type.
func (s *Service) searchType(
	ctx context.Context, ix *index.EntityIndex, terms []string, req request.Request,
) ([]candidate, error) {
	hits, err := ix.Match(ctx, terms)
	if err != nil {
		return nil, err //nolint:wrapcheck // OpError carries the entity type
	}
	if len(hits) == 0 {
		return nil, nil
	}

	et := ix.Config()
	conds := req.Filters().For(et.Name())

	var recs map[int64]record.Record
	if s.records != nil && needsRecords(et, conds, req.Order()) {
		ids := make([]int64, len(hits))
		for i, h := range hits {
			ids[i] = h.DocID
		}
		recs, err = s.records.Load(ctx, et, ids)
		if err != nil {
			return nil, fmt.Errorf("load %s records: %w", et.Name(), err)
		}
	}

	out := make([]candidate, 0, len(hits))
	for _, h := range hits {
		fields, ok := ix.Entry(h.DocID)
		if !ok {
			continue // deleted since Match
		}
		rec, hasRec := recs[h.DocID]
		if recs != nil && !hasRec {
			continue // deleted from the store, index event pending
		}
		get := func(attr string) []string {
			if hasRec {
				if v := rec.Values(attr); v != nil {
					return v
				}
			}
			if v, ok := fields[attr]; ok {
				return []string{v}
			}
			return nil
		}
		if !filter.MatchAll(conds, get) {
			continue
		}

		var name string
		if et.NameField() != "" {
			if v := get(et.NameField()); len(v) > 0 {
				name = v[0]
			}
		}
		if req.Highlight() {
			fields = s.highlighter.Fields(fields, terms)
		}
		out = append(out, candidate{
			res:  result.New(h.DocID, et.Name(), h.Score, fields, et.URL(h.DocID, name)),
			name: tokenizer.Fold(name),
			date: latest(get, et.DateFields()),
		})
	}
	return out, nil
}

// latest returns the most recent timestamp among attrs, epoch when none parse.
func latest(get func(string) []string, attrs []string) time.Time {
	ts := time.Unix(0, 0).UTC()
	for _, a := range attrs {
		for _, v := range get(a) {
			if t, ok := record.ParseTime(v); ok && t.After(ts) {
				ts = t
			}
		}
	}
	return ts
}
