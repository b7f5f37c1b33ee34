// Package index implements the per entity type inverted index and the
// registry that routes queries and sync events to it.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/text/tokenizer"
)

// State is the availability of an EntityIndex.
type State string

// Index states.
const (
	StateReady      State = "ready"
	StateRebuilding State = "rebuilding"
	StateCorrupted  State = "corrupted"
)

// Hit is one matched document.
type Hit struct {
	DocID int64
	Score float64
}

// data is the mutable content of an index. Rebuild replaces it whole.
type data struct {
	entries  map[int64]*Entry
	postings map[string]map[int64]float64
	totalLen int
}

func newData() *data {
	return &data{
		entries:  make(map[int64]*Entry),
		postings: make(map[string]map[int64]float64),
	}
}

func (d *data) put(e *Entry) {
	d.remove(e.docID)
	d.entries[e.docID] = e
	d.totalLen += e.length
	for t, w := range e.wtf {
		p, ok := d.postings[t]
		if !ok {
			p = make(map[int64]float64)
			d.postings[t] = p
		}
		p[e.docID] = w
	}
}

func (d *data) remove(docID int64) {
	old, ok := d.entries[docID]
	if !ok {
		return
	}
	delete(d.entries, docID)
	d.totalLen -= old.length
	for t := range old.wtf {
		p := d.postings[t]
		delete(p, docID)
		if len(p) == 0 {
			delete(d.postings, t)
		}
	}
}

// change is one staged sync event. A nil entry means delete.
type change struct {
	docID int64
	entry *Entry
}

// EntityIndex is the inverted index of one entity type.
//
// Readers take mu shared. Writers and Rebuild serialize on writeMu and take
// mu exclusively only to apply finished changes, so a reader sees either
// the previous or the new version of a document.
type EntityIndex struct {
	cfg    entity.Type
	params Params

	writeMu sync.Mutex

	mu     sync.RWMutex
	data   *data
	state  State
	reason string
}

// New creates an empty, ready index for cfg.
func New(cfg entity.Type, params Params) *EntityIndex {
	return &EntityIndex{
		cfg:    cfg,
		params: params.normalized(),
		data:   newData(),
		state:  StateReady,
	}
}

// Config returns the entity type configuration.
func (x *EntityIndex) Config() entity.Type { return x.cfg }

// Name returns the entity type name.
func (x *EntityIndex) Name() string { return x.cfg.Name() }

// State returns the availability state and, for a corrupted index, the reason.
func (x *EntityIndex) State() (State, string) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state, x.reason
}

func (x *EntityIndex) unavailable(op string) error {
	if x.state == StateRebuilding {
		return domain.NewOpError(op, x.cfg.Name(), 0, fmt.Errorf("%w: rebuilding", domain.ErrIndexUnavailable))
	}
	return domain.NewOpError(op, x.cfg.Name(), 0, fmt.Errorf("%w: %s", domain.ErrIndexUnavailable, x.reason))
}

// Match returns every document containing at least one of terms, scored and
// ordered by ascending doc id. Zero matches is an empty slice and no error;
// an index that is rebuilding or corrupted returns ErrIndexUnavailable.
func (x *EntityIndex) Match(ctx context.Context, terms []string) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewOpError(domain.OpMatch, x.cfg.Name(), 0, err)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.state != StateReady {
		return nil, x.unavailable(domain.OpMatch)
	}

	d := x.data
	n := len(d.entries)
	if n == 0 || len(terms) == 0 {
		return []Hit{}, nil
	}
	avg := float64(d.totalLen) / float64(n)

	scores := make(map[int64]float64)
	for _, t := range tokenizer.Unique(terms) {
		p, ok := d.postings[t]
		if !ok {
			continue
		}
		w := idf(n, len(p))
		for id, wtf := range p {
			scores[id] += w * x.params.termScore(wtf, d.entries[id].length, avg)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, s := range scores {
		hits = append(hits, Hit{DocID: id, Score: s})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].DocID < hits[j].DocID })
	return hits, nil
}

// stageWrite validates a write and returns the change to apply later.
func (x *EntityIndex) stageWrite(docID int64, values map[string]string) (change, error) {
	if docID <= 0 {
		return change{}, domain.NewOpError(domain.OpWrite, x.cfg.Name(), docID,
			fmt.Errorf("document id must be positive"))
	}
	return change{docID: docID, entry: newEntry(x.cfg, docID, values)}, nil
}

func (x *EntityIndex) stageDelete(docID int64) (change, error) {
	if docID <= 0 {
		return change{}, domain.NewOpError(domain.OpDelete, x.cfg.Name(), docID,
			fmt.Errorf("document id must be positive"))
	}
	return change{docID: docID}, nil
}

// apply installs staged changes in order. Waits for a running rebuild.
func (x *EntityIndex) apply(changes []change) {
	if len(changes) == 0 {
		return
	}
	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range changes {
		if c.entry == nil {
			x.data.remove(c.docID)
			continue
		}
		if old, ok := x.data.entries[c.docID]; ok && old.equal(c.entry) {
			continue
		}
		x.data.put(c.entry)
	}
}

// OnWrite upserts the entry of docID from the given field text.
// Applying the same write twice leaves the index unchanged.
func (x *EntityIndex) OnWrite(ctx context.Context, docID int64, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewOpError(domain.OpWrite, x.cfg.Name(), docID, err)
	}
	c, err := x.stageWrite(docID, values)
	if err != nil {
		return err
	}
	x.apply([]change{c})
	return nil
}

// OnDelete removes the entry of docID. Removing an absent id is a no-op.
func (x *EntityIndex) OnDelete(ctx context.Context, docID int64) error {
	if err := ctx.Err(); err != nil {
		return domain.NewOpError(domain.OpDelete, x.cfg.Name(), docID, err)
	}
	c, err := x.stageDelete(docID)
	if err != nil {
		return err
	}
	x.apply([]change{c})
	return nil
}

// Rebuild replaces the whole index with the rows of a full scan. Writers of
// this type wait and Match reports ErrIndexUnavailable until it finishes.
// On any scan error or context cancellation the previous content and state
// are kept and the error wraps ErrRebuildFailed. The returned count is the
// number of documents in the new index.
func (x *EntityIndex) Rebuild(ctx context.Context, rows RowIterator) (int, error) {
	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	x.mu.Lock()
	prevState, prevReason := x.state, x.reason
	x.state = StateRebuilding
	x.mu.Unlock()

	fresh, err := x.scan(ctx, rows)
	if cerr := rows.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close rows: %w", cerr)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err != nil {
		x.state, x.reason = prevState, prevReason
		return 0, domain.NewOpError(domain.OpRebuild, x.cfg.Name(), 0,
			fmt.Errorf("%w: %w", domain.ErrRebuildFailed, err))
	}
	x.data = fresh
	x.state, x.reason = StateReady, ""
	return len(fresh.entries), nil
}

func (x *EntityIndex) scan(ctx context.Context, rows RowIterator) (*data, error) {
	fresh := newData()
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := rows.Row()
		if row.ID <= 0 {
			return nil, fmt.Errorf("row with non-positive id %d", row.ID)
		}
		fresh.put(newEntry(x.cfg, row.ID, row.Fields))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Invalidate marks the index corrupted. Match reports ErrIndexUnavailable
// until the next successful Rebuild. Writes keep being applied.
func (x *EntityIndex) Invalidate(reason string) {
	if reason == "" {
		reason = "invalidated"
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.state, x.reason = StateCorrupted, reason
}

// Entry returns a copy of the indexed field text of docID.
func (x *EntityIndex) Entry(docID int64) (map[string]string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.data.entries[docID]
	if !ok {
		return nil, false
	}
	return e.Fields(), true
}

// Vocabulary returns term -> document frequency. It fails with
// ErrIndexUnavailable while the index is not ready.
func (x *EntityIndex) Vocabulary() (map[string]int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.state != StateReady {
		return nil, x.unavailable(domain.OpMatch)
	}
	out := make(map[string]int, len(x.data.postings))
	for t, p := range x.data.postings {
		out[t] = len(p)
	}
	return out, nil
}

// Stats returns document and term counts.
func (x *EntityIndex) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s := Stats{
		EntityType: x.cfg.Name(),
		Documents:  len(x.data.entries),
		Terms:      len(x.data.postings),
		State:      x.state,
		Reason:     x.reason,
	}
	if s.Documents > 0 {
		s.AvgLength = float64(x.data.totalLen) / float64(s.Documents)
	}
	return s
}
