package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of writing one record in a batch.
type Result struct {
	id     int64
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id int64) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(id int64, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the record id.
func (r Result) ID() int64 { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Failed counts the results with StatusError.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.status == StatusError {
			n++
		}
	}
	return n
}
