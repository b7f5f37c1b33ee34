package db

import (
	"errors"
	"fmt"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrTxDone      = errors.New("db: transaction already finished")
	ErrInvalidRow  = errors.New("db: invalid row")
)

// Op names used for error context. Redis adapters use the command name.
const (
	OpBegin    = "BEGIN"
	OpCommit   = "COMMIT"
	OpRollback = "ROLLBACK"
	OpUpsert   = "UPSERT"
	OpDelete   = "DELETE"
	OpGet      = "GET"
	OpScan     = "SCAN"
	OpPing     = "PING"
	OpMigrate  = "MIGRATE"
	OpDel      = "DEL"
	OpHGetAll  = "HGETALL"
	OpHSet     = "HSET"
	OpExec     = "EXEC"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// ValidateRow checks the invariants every adapter relies on.
func ValidateRow(r Row) error {
	if r.Collection == "" {
		return &Error{Op: OpUpsert, Err: fmt.Errorf("%w: collection is required", ErrInvalidRow)}
	}
	if r.ID <= 0 {
		return &Error{Op: OpUpsert, Err: fmt.Errorf("%w: id must be positive", ErrInvalidRow)}
	}
	for k := range r.Lists {
		if _, dup := r.Scalars[k]; dup {
			return &Error{Op: OpUpsert, Err: fmt.Errorf("%w: attribute %q is both scalar and list", ErrInvalidRow, k)}
		}
	}
	return nil
}

// SliceIterator iterates over rows already in memory.
type SliceIterator struct {
	rows []Row
	pos  int
}

// NewSliceIterator returns a RowIterator over rows.
func NewSliceIterator(rows []Row) *SliceIterator {
	return &SliceIterator{rows: rows, pos: -1}
}

// Next advances to the next row.
func (it *SliceIterator) Next() bool {
	if it.pos+1 >= len(it.rows) {
		it.pos = len(it.rows)
		return false
	}
	it.pos++
	return true
}

// Row returns the current row.
func (it *SliceIterator) Row() Row { return it.rows[it.pos] }

// Err always returns nil.
func (it *SliceIterator) Err() error { return nil }

// Close is a no-op.
func (it *SliceIterator) Close() error { return nil }
