package rebuild

import (
	"time"

	"go.uber.org/multierr"
)

// Outcome is the result of rebuilding one entity type.
type Outcome struct {
	EntityType string
	Documents  int
	Duration   time.Duration
	Err        error
}

// Report collects the outcome of every type touched by RebuildAll.
// A failed type never aborts the others.
type Report struct {
	Outcomes []Outcome
}

// Succeeded returns the types rebuilt successfully, in report order.
func (r Report) Succeeded() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o.EntityType)
		}
	}
	return out
}

// Failed returns the types whose rebuild failed, in report order.
func (r Report) Failed() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.EntityType)
		}
	}
	return out
}

// Err combines every failure, nil when all types succeeded.
func (r Report) Err() error {
	var err error
	for _, o := range r.Outcomes {
		err = multierr.Append(err, o.Err)
	}
	return err
}
