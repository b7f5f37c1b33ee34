package record

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const stripeCount = 64

// stripes serializes writers of the same (type, id) without a lock per key.
type stripes struct {
	mu [stripeCount]sync.Mutex
}

func (s *stripes) lock(entityType string, id int64) func() {
	h := xxhash.Sum64String(entityType) ^ uint64(id)*0x9E3779B97F4A7C15
	m := &s.mu[h%stripeCount]
	m.Lock()
	return m.Unlock
}
