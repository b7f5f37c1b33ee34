package suggest

import "github.com/huntkil/lexis/internal/index"

// Indexes lists every registered entity index.
type Indexes interface {
	Indexes() []*index.EntityIndex
}
