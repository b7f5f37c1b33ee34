package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/huntkil/lexis/internal/db"
)

// Hash layout: one hash per record at <prefix>:<collection>:<id>.
const (
	idField      = "_id"
	scalarPrefix = "s:"
	listPrefix   = "l:"
	scanBatch    = 100
)

func (s *Store) key(collection string, id int64) string {
	return s.prefix + ":" + collection + ":" + strconv.FormatInt(id, 10)
}

func (s *Store) pattern(collection string) string {
	return s.prefix + ":" + collection + ":*"
}

func encodeHash(row db.Row) (map[string]string, error) {
	h := make(map[string]string, len(row.Scalars)+len(row.Lists)+1)
	h[idField] = strconv.FormatInt(row.ID, 10)
	for k, v := range row.Scalars {
		h[scalarPrefix+k] = v
	}
	for k, v := range row.Lists {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode list %s: %w", k, err)
		}
		h[listPrefix+k] = string(b)
	}
	return h, nil
}

func decodeHash(collection string, h map[string]string) (db.Row, error) {
	id, err := strconv.ParseInt(h[idField], 10, 64)
	if err != nil {
		return db.Row{}, fmt.Errorf("decode %s: %w", idField, err)
	}
	row := db.Row{Collection: collection, ID: id}
	for k, v := range h {
		switch {
		case strings.HasPrefix(k, scalarPrefix):
			if row.Scalars == nil {
				row.Scalars = make(map[string]string)
			}
			row.Scalars[strings.TrimPrefix(k, scalarPrefix)] = v
		case strings.HasPrefix(k, listPrefix):
			var vs []string
			if err := json.Unmarshal([]byte(v), &vs); err != nil {
				return db.Row{}, fmt.Errorf("decode list %s of %d: %w", k, id, err)
			}
			if row.Lists == nil {
				row.Lists = make(map[string][]string)
			}
			row.Lists[strings.TrimPrefix(k, listPrefix)] = vs
		}
	}
	return row, nil
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, collection string, id int64) (db.Row, error) {
	cmd := s.b().Hgetall().Key(s.key(collection, id)).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return db.Row{}, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	if len(m) == 0 {
		return db.Row{}, &db.Error{Op: db.OpHGetAll, Err: db.ErrKeyNotFound}
	}
	row, err := decodeHash(collection, m)
	if err != nil {
		return db.Row{}, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return row, nil
}

// GetMulti fetches records in a single DoMulti round-trip.
func (s *Store) GetMulti(ctx context.Context, collection string, ids []int64) (map[int64]db.Row, error) {
	out := make(map[int64]db.Row, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(collection, id)
	}
	hashes, err := s.hgetallMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	for _, h := range hashes {
		if len(h) == 0 {
			continue
		}
		row, err := decodeHash(collection, h)
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: err}
		}
		out[row.ID] = row
	}
	return out, nil
}

func (s *Store) hgetallMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]map[string]string, len(results))
	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = m
	}
	return out, nil
}

// scanKeys iterates keys matching a pattern.
func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// Scan lists the keys of a collection and streams the records in id order,
// fetching hashes in batches.
func (s *Store) Scan(ctx context.Context, collection string) (db.RowIterator, error) {
	keys, err := s.scanKeys(ctx, s.pattern(collection))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(keys))
	seen := make(map[int64]bool, len(keys))
	base := s.prefix + ":" + collection + ":"
	for _, k := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(k, base), 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &scanIterator{ctx: ctx, store: s, collection: collection, ids: ids}, nil
}

type scanIterator struct {
	ctx        context.Context
	store      *Store
	collection string
	ids        []int64

	batch   []db.Row
	latched db.Row
	lastErr error
}

func (it *scanIterator) Next() bool {
	for len(it.batch) == 0 {
		if it.lastErr != nil || len(it.ids) == 0 {
			return false
		}
		n := min(scanBatch, len(it.ids))
		chunk := it.ids[:n]
		it.ids = it.ids[n:]
		rows, err := it.store.GetMulti(it.ctx, it.collection, chunk)
		if err != nil {
			it.lastErr = err
			return false
		}
		for _, id := range chunk {
			// deleted between SCAN and HGETALL
			if r, ok := rows[id]; ok {
				it.batch = append(it.batch, r)
			}
		}
	}
	it.latched, it.batch = it.batch[0], it.batch[1:]
	return true
}

func (it *scanIterator) Row() db.Row  { return it.latched }
func (it *scanIterator) Err() error   { return it.lastErr }
func (it *scanIterator) Close() error { return nil }
