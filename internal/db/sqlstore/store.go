// Package sqlstore is the database/sql adapter of the authoritative store.
// It speaks SQLite (modernc.org/sqlite, driver "sqlite") and PostgreSQL
// (lib/pq, driver "postgres").
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	// database/sql drivers
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/huntkil/lexis/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Dialect selects placeholder syntax and DDL.
type Dialect string

// Supported dialects.
const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Config holds connection parameters.
type Config struct {
	Driver string // sqlite | postgres
	DSN    string
	Table  string // default "records"
}

// Store implements db.Store on a SQL table keyed by (collection, id).
// Attributes are stored as two JSON columns.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// Open connects and migrates the records table.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d := Dialect(cfg.Driver)
	if d != SQLite && d != Postgres {
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	conn, err := sql.Open(string(d), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	if d == SQLite {
		// one writer; also keeps ":memory:" on a single connection
		conn.SetMaxOpenConns(1)
	}
	s := New(conn, d, cfg.Table)
	if err := s.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open *sql.DB.
func New(conn *sql.DB, d Dialect, table string) *Store {
	if table == "" {
		table = "records"
	}
	return &Store{db: conn, dialect: d, table: table}
}

// Migrate creates the records table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	idType := "INTEGER"
	if s.dialect == Postgres {
		idType = "BIGINT"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	collection TEXT NOT NULL,
	id %s NOT NULL,
	scalars TEXT NOT NULL,
	lists TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (collection, id)
)`, s.table, idType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	return nil
}

// rebind rewrites ? placeholders for the dialect.
func (s *Store) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Get returns one row.
func (s *Store) Get(ctx context.Context, collection string, id int64) (db.Row, error) {
	q := s.rebind(fmt.Sprintf("SELECT id, scalars, lists FROM %s WHERE collection = ? AND id = ?", s.table))
	var raw rawRow
	err := s.db.QueryRowContext(ctx, q, collection, id).Scan(&raw.id, &raw.scalars, &raw.lists)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Row{}, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
	}
	if err != nil {
		return db.Row{}, &db.Error{Op: db.OpGet, Err: err}
	}
	return raw.decode(collection)
}

// GetMulti returns the existing rows among ids.
func (s *Store) GetMulti(ctx context.Context, collection string, ids []int64) (map[int64]db.Row, error) {
	out := make(map[int64]db.Row, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args = append(args, id)
	}
	q := s.rebind(fmt.Sprintf("SELECT id, scalars, lists FROM %s WHERE collection = ? AND id IN (%s)",
		s.table, strings.Join(marks, ", ")))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var raw rawRow
		if err := rows.Scan(&raw.id, &raw.scalars, &raw.lists); err != nil {
			return nil, &db.Error{Op: db.OpGet, Err: err}
		}
		r, err := raw.decode(collection)
		if err != nil {
			return nil, err
		}
		out[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return out, nil
}

// Scan streams a collection ordered by id.
func (s *Store) Scan(ctx context.Context, collection string) (db.RowIterator, error) {
	q := s.rebind(fmt.Sprintf("SELECT id, scalars, lists FROM %s WHERE collection = ? ORDER BY id", s.table))
	rows, err := s.db.QueryContext(ctx, q, collection)
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return &rowIterator{rows: rows, collection: collection}, nil
}

// Begin opens a SQL transaction.
func (s *Store) Begin(ctx context.Context) (db.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &db.Error{Op: db.OpBegin, Err: err}
	}
	return &tx{store: s, tx: sqlTx}, nil
}

type tx struct {
	store *Store
	tx    *sql.Tx
}

func (t *tx) Upsert(ctx context.Context, row db.Row) error {
	if err := db.ValidateRow(row); err != nil {
		return err
	}
	scalars, lists, err := encode(row)
	if err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	q := t.store.rebind(fmt.Sprintf(`INSERT INTO %s (collection, id, scalars, lists, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET scalars = excluded.scalars, lists = excluded.lists, updated_at = excluded.updated_at`,
		t.store.table))
	if _, err := t.tx.ExecContext(ctx, q, row.Collection, row.ID, scalars, lists, time.Now().UTC()); err != nil {
		return &db.Error{Op: db.OpUpsert, Err: mapTxErr(err)}
	}
	return nil
}

func (t *tx) Delete(ctx context.Context, collection string, id int64) error {
	q := t.store.rebind(fmt.Sprintf("DELETE FROM %s WHERE collection = ? AND id = ?", t.store.table))
	if _, err := t.tx.ExecContext(ctx, q, collection, id); err != nil {
		return &db.Error{Op: db.OpDelete, Err: mapTxErr(err)}
	}
	return nil
}

func (t *tx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return &db.Error{Op: db.OpCommit, Err: mapTxErr(err)}
	}
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return &db.Error{Op: db.OpRollback, Err: err}
	}
	return nil
}

func mapTxErr(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return db.ErrTxDone
	}
	return err
}

type rawRow struct {
	id      int64
	scalars string
	lists   string
}

func (r rawRow) decode(collection string) (db.Row, error) {
	row := db.Row{Collection: collection, ID: r.id}
	if err := json.Unmarshal([]byte(r.scalars), &row.Scalars); err != nil {
		return db.Row{}, &db.Error{Op: db.OpGet, Err: fmt.Errorf("decode scalars of %d: %w", r.id, err)}
	}
	if err := json.Unmarshal([]byte(r.lists), &row.Lists); err != nil {
		return db.Row{}, &db.Error{Op: db.OpGet, Err: fmt.Errorf("decode lists of %d: %w", r.id, err)}
	}
	return row, nil
}

func encode(row db.Row) (string, string, error) {
	scalars := row.Scalars
	if scalars == nil {
		scalars = map[string]string{}
	}
	lists := row.Lists
	if lists == nil {
		lists = map[string][]string{}
	}
	sb, err := json.Marshal(scalars)
	if err != nil {
		return "", "", fmt.Errorf("encode scalars: %w", err)
	}
	lb, err := json.Marshal(lists)
	if err != nil {
		return "", "", fmt.Errorf("encode lists: %w", err)
	}
	return string(sb), string(lb), nil
}

// rowIterator latches the current row of a *sql.Rows scan.
type rowIterator struct {
	rows       *sql.Rows
	collection string
	lastErr    error
	latched    db.Row
}

func (it *rowIterator) Next() bool {
	if it.lastErr != nil || !it.rows.Next() {
		return false
	}
	var raw rawRow
	if it.lastErr = it.rows.Scan(&raw.id, &raw.scalars, &raw.lists); it.lastErr != nil {
		return false
	}
	it.latched, it.lastErr = raw.decode(it.collection)
	return it.lastErr == nil
}

func (it *rowIterator) Row() db.Row { return it.latched }

func (it *rowIterator) Err() error {
	if it.lastErr != nil {
		return it.lastErr
	}
	if err := it.rows.Err(); err != nil {
		return &db.Error{Op: db.OpScan, Err: err}
	}
	return nil
}

func (it *rowIterator) Close() error {
	if err := it.rows.Close(); err != nil {
		return fmt.Errorf("row iterator: %w", err)
	}
	return nil
}
