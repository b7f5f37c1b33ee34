package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/domain/entity"
)

// Registry owns the EntityIndex of every registered type. Types are
// registered at startup; the first Route or Begin seals the registry.
type Registry struct {
	params Params

	mu      sync.RWMutex
	indexes map[string]*EntityIndex
	sealed  bool
}

// NewRegistry creates an empty registry whose indexes score with params.
func NewRegistry(params Params) *Registry {
	return &Registry{
		params:  params.normalized(),
		indexes: make(map[string]*EntityIndex),
	}
}

// Register adds an entity type with an empty index.
func (r *Registry) Register(cfg entity.Type) (*EntityIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return nil, domain.NewOpError(domain.OpRegister, cfg.Name(), 0, domain.ErrRegistrySealed)
	}
	if cfg.Name() == "" {
		return nil, domain.NewOpError(domain.OpRegister, "", 0,
			fmt.Errorf("%w: entity type name is required", domain.ErrInvalidSchema))
	}
	if _, dup := r.indexes[cfg.Name()]; dup {
		return nil, domain.NewOpError(domain.OpRegister, cfg.Name(), 0,
			fmt.Errorf("%w: entity type already registered", domain.ErrInvalidSchema))
	}
	x := New(cfg, r.params)
	r.indexes[cfg.Name()] = x
	return x, nil
}

// Seal forbids further registrations.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *Registry) sealOnce() {
	r.mu.RLock()
	sealed := r.sealed
	r.mu.RUnlock()
	if !sealed {
		r.Seal()
	}
}

// Route returns the index of an entity type or ErrUnknownEntityType.
func (r *Registry) Route(name string) (*EntityIndex, error) {
	r.sealOnce()
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, ok := r.indexes[name]
	if !ok {
		return nil, domain.NewOpError(domain.OpRoute, name, 0, domain.ErrUnknownEntityType)
	}
	return x, nil
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Indexes returns every registered index ordered by type name.
func (r *Registry) Indexes() []*EntityIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EntityIndex, 0, len(r.indexes))
	for _, x := range r.indexes {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Stats returns per type and aggregate counts.
func (r *Registry) Stats() Summary {
	var sum Summary
	terms := make(map[string]struct{})
	for _, x := range r.Indexes() {
		s := x.Stats()
		sum.Types = append(sum.Types, s)
		sum.Documents += s.Documents
		x.mu.RLock()
		for t := range x.data.postings {
			terms[t] = struct{}{}
		}
		x.mu.RUnlock()
	}
	sum.Terms = len(terms)
	return sum
}

// Begin opens a sync transaction.
func (r *Registry) Begin() *Tx {
	r.sealOnce()
	return &Tx{registry: r, staged: make(map[string][]change)}
}
