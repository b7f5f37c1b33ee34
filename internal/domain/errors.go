package domain

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInvalidQuery signals a malformed query: bad filter, out-of-range limit or offset.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownEntityType signals a query or sync event for an unregistered entity type.
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrIndexUnavailable signals a transient index outage (rebuilding or invalidated).
	// It is never returned for a query that merely has zero matches.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrRebuildFailed signals that a rebuild did not complete; the previous index is kept.
	ErrRebuildFailed = errors.New("rebuild failed")
	// ErrRegistrySealed signals a registration attempt after the registry started serving.
	ErrRegistrySealed = errors.New("registry sealed")
	// ErrTxDone signals use of a sync transaction after Commit or Rollback.
	ErrTxDone = errors.New("sync transaction already finished")
	// ErrNotFound signals a missing record in the authoritative store.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSchema signals an invalid entity type configuration.
	ErrInvalidSchema = errors.New("invalid schema")
)

// Op names carried by OpError.
const (
	OpMatch    = "match"
	OpWrite    = "write"
	OpDelete   = "delete"
	OpRebuild  = "rebuild"
	OpRoute    = "route"
	OpRegister = "register"
	OpSearch   = "search"
	OpCommit   = "commit"
)

// OpError attaches entity type, document id and operation to an error so
// callers can log it without parsing the message.
type OpError struct {
	Op         string
	EntityType string
	DocID      int64 // 0 when the operation is not document scoped
	Err        error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.EntityType != "" {
		b.WriteString(" ")
		b.WriteString(e.EntityType)
	}
	if e.DocID != 0 {
		b.WriteString(" #")
		b.WriteString(strconv.FormatInt(e.DocID, 10))
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *OpError) Unwrap() error { return e.Err }

// NewOpError wraps err with operation context. A nil err yields nil.
func NewOpError(op, entityType string, docID int64, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, EntityType: entityType, DocID: docID, Err: err}
}

// OpContext extracts the operation context from err, if any.
func OpContext(err error) (*OpError, bool) {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
