package search

import (
	"sort"
	"time"

	"github.com/huntkil/lexis/internal/domain/search/order"
	"github.com/huntkil/lexis/internal/domain/search/result"
)

// candidate is a filtered match together with its sort keys.
type candidate struct {
	res  result.Result
	name string    // case-folded
	date time.Time // most recent timestamp, epoch when missing
}

// sortCandidates orders the merged candidates of every target type.
// Ties always break on id asc, then entity type asc, so output is
// deterministic for identical index state.
func sortCandidates(cs []candidate, o order.Order) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := &cs[i], &cs[j]
		switch o {
		case order.Date:
			if !a.date.Equal(b.date) {
				return a.date.After(b.date)
			}
		case order.Name:
			if a.name != b.name {
				return a.name < b.name
			}
		default:
			if a.res.Score() != b.res.Score() {
				return a.res.Score() > b.res.Score()
			}
		}
		if a.res.ID() != b.res.ID() {
			return a.res.ID() < b.res.ID()
		}
		return a.res.EntityType() < b.res.EntityType()
	})
}

// paginate returns the [offset, offset+limit) window of cs.
func paginate(cs []candidate, offset, limit int) []result.Result {
	if offset >= len(cs) {
		return []result.Result{}
	}
	end := offset + limit
	if end > len(cs) {
		end = len(cs)
	}
	out := make([]result.Result, 0, end-offset)
	for _, c := range cs[offset:end] {
		out = append(out, c.res)
	}
	return out
}
