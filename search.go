package lexis

import (
	"context"
	"fmt"
)

// Search runs q against the targeted types and returns one merged page.
// A query without searchable terms yields an empty page. When every
// targeted index is unavailable the error wraps ErrIndexUnavailable; when
// only some are, they are listed in Page.Unavailable.
func (e *Engine) Search(ctx context.Context, q Query) (*Page, error) {
	req, err := toRequest(q, e.limits)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	page, err := e.searchSvc.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return fromPage(&page), nil
}

// Suggest returns indexed terms starting with prefix, most frequent first.
// limit <= 0 selects the default of 10.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	out, err := e.suggestSvc.Suggest(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return fromSuggestions(out), nil
}

// Popular returns the most frequent indexed terms across every type.
func (e *Engine) Popular(ctx context.Context, limit int) ([]Suggestion, error) {
	out, err := e.suggestSvc.Popular(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("popular: %w", err)
	}
	return fromSuggestions(out), nil
}
