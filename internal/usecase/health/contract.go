package health

import (
	"context"

	"github.com/huntkil/lexis/internal/index"
)

// DBPinger checks authoritative store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexLister lists the registered entity indexes.
type IndexLister interface {
	Indexes() []*index.EntityIndex
}
