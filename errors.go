package lexis

import "github.com/huntkil/lexis/internal/domain"

// Errors returned by the engine. Match them with errors.Is.
var (
	ErrInvalidQuery      = domain.ErrInvalidQuery
	ErrUnknownEntityType = domain.ErrUnknownEntityType
	ErrIndexUnavailable  = domain.ErrIndexUnavailable
	ErrRebuildFailed     = domain.ErrRebuildFailed
	ErrRegistrySealed    = domain.ErrRegistrySealed
	ErrTxDone            = domain.ErrTxDone
	ErrNotFound          = domain.ErrNotFound
	ErrInvalidSchema     = domain.ErrInvalidSchema
)

// OpError carries the operation, entity type and document id of a failure.
type OpError = domain.OpError
