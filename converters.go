package lexis

import (
	"fmt"

	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/entity/field"
	"github.com/huntkil/lexis/internal/domain/search/filter"
	"github.com/huntkil/lexis/internal/domain/search/order"
	"github.com/huntkil/lexis/internal/domain/search/request"
	"github.com/huntkil/lexis/internal/domain/search/result"
	"github.com/huntkil/lexis/internal/index"
	rebuilduc "github.com/huntkil/lexis/internal/usecase/rebuild"
	suggestuc "github.com/huntkil/lexis/internal/usecase/suggest"
)

func toEntityType(t EntityType) (entity.Type, error) {
	fields := make([]field.Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		ff, err := field.New(f.Name, f.Weight)
		if err != nil {
			return entity.Type{}, err
		}
		fields = append(fields, ff)
	}
	et, err := entity.New(t.Name, t.Source, fields, t.Filterable,
		entity.WithNameField(t.NameField),
		entity.WithDateFields(t.DateFields...),
		entity.WithURLPattern(t.URL),
	)
	if err != nil {
		return entity.Type{}, fmt.Errorf("entity type: %w", err)
	}
	return et, nil
}

func toRequest(q Query, lim request.Limits) (request.Request, error) {
	byType := make(map[string][]filter.Condition)
	for _, f := range q.Filters {
		c, err := filter.New(f.Attribute, f.Values...)
		if err != nil {
			return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		byType[f.EntityType] = append(byType[f.EntityType], c)
	}
	set, err := filter.NewSet(byType)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	o, err := order.Parse(string(q.Sort))
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	req, err := request.New(q.Text, q.Types, set, o, q.Limit, q.Offset, q.Highlight, lim)
	if err != nil {
		return request.Request{}, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

func fromPage(p *result.Page) *Page {
	out := &Page{
		Results:     make([]Result, 0, len(p.Results())),
		Total:       p.Total(),
		HasMore:     p.HasMore(),
		Elapsed:     p.Elapsed(),
		Unavailable: p.Unavailable(),
	}
	for _, r := range p.Results() {
		out.Results = append(out.Results, Result{
			ID:         r.ID(),
			EntityType: r.EntityType(),
			Score:      r.Score(),
			Fields:     r.Fields(),
			URL:        r.URL(),
		})
	}
	return out
}

func fromSuggestions(in []suggestuc.Suggestion) []Suggestion {
	out := make([]Suggestion, len(in))
	for i, s := range in {
		out[i] = Suggestion{Term: s.Term, Frequency: s.Frequency}
	}
	return out
}

func fromSummary(s index.Summary) Stats {
	out := Stats{Types: make([]TypeStats, len(s.Types)), Documents: s.Documents, Terms: s.Terms}
	for i, t := range s.Types {
		out.Types[i] = TypeStats{
			EntityType: t.EntityType,
			Documents:  t.Documents,
			Terms:      t.Terms,
			AvgLength:  t.AvgLength,
			State:      IndexState(t.State),
			Reason:     t.Reason,
		}
	}
	return out
}

func fromOutcome(o rebuilduc.Outcome) RebuildOutcome {
	return RebuildOutcome{EntityType: o.EntityType, Documents: o.Documents, Duration: o.Duration, Err: o.Err}
}
