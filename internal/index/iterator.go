package index

// Row is one authoritative record as fed to the index: its id and the text
// of the indexed fields.
type Row struct {
	ID     int64
	Fields map[string]string
}

// RowIterator streams the rows of a full scan used by Rebuild.
type RowIterator interface {
	// Next advances the iterator. It returns false when the scan is
	// exhausted or failed; Err tells which.
	Next() bool
	// Row returns the current row.
	Row() Row
	// Err returns the error that stopped iteration, if any.
	Err() error
	// Close releases resources held by the iterator.
	Close() error
}

// SliceIterator iterates over an in-memory slice of rows.
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
