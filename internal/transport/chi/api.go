package chi

import "encoding/json"

// ErrorCode is a machine readable error classification.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeInvalidQuery      ErrorCode = "invalid_query"
	ErrorCodeUnknownEntityType ErrorCode = "unknown_entity_type"
	ErrorCodeIndexUnavailable  ErrorCode = "index_unavailable"
	ErrorCodeRebuildFailed     ErrorCode = "rebuild_failed"
	ErrorCodeNotFound          ErrorCode = "not_found"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeInternal          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchItem is one ranked result.
type SearchItem struct {
	ID         int64             `json:"id"`
	EntityType string            `json:"entity_type"`
	Score      float64           `json:"score"`
	Fields     map[string]string `json:"fields"`
	URL        string            `json:"url"`
}

// SearchResponse is one page of results.
type SearchResponse struct {
	Items       []SearchItem `json:"items"`
	Total       int          `json:"total"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
	HasMore     bool         `json:"has_more"`
	ElapsedMS   float64      `json:"elapsed_ms"`
	Unavailable []string     `json:"unavailable,omitempty"`
}

// SuggestItem is a vocabulary term and its document frequency.
type SuggestItem struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

// SuggestResponse lists suggested terms.
type SuggestResponse struct {
	Items []SuggestItem `json:"items"`
}

// TypeStats describes one entity index.
type TypeStats struct {
	EntityType string  `json:"entity_type"`
	Documents  int     `json:"documents"`
	Terms      int     `json:"terms"`
	AvgLength  float64 `json:"avg_length"`
	State      string  `json:"state"`
	Reason     string  `json:"reason,omitempty"`
}

// StatsResponse aggregates index statistics.
type StatsResponse struct {
	Types     []TypeStats `json:"types"`
	Documents int         `json:"documents"`
	Terms     int         `json:"terms"`
}

// RebuildItem is the outcome of rebuilding one type.
type RebuildItem struct {
	EntityType string  `json:"entity_type"`
	Status     string  `json:"status"`
	Documents  int     `json:"documents"`
	ElapsedMS  float64 `json:"elapsed_ms"`
	Error      string  `json:"error,omitempty"`
}

// RebuildResponse reports a rebuild run.
type RebuildResponse struct {
	Items []RebuildItem `json:"items"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// BatchRecord is one record of a batch upsert.
type BatchRecord struct {
	ID         int64                      `json:"id"`
	Attributes map[string]json.RawMessage `json:"attributes"`
}

// BatchUpsertRequest is the body of POST /v1/records/{type}.
type BatchUpsertRequest struct {
	Records []BatchRecord `json:"records"`
}

// BatchDeleteRequest is the body of POST /v1/records/{type}/delete.
type BatchDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// BatchItem is the outcome of one batch item.
type BatchItem struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResponse reports a batch write.
type BatchResponse struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// InvalidateRequest is the body of POST /v1/admin/invalidate/{type}.
type InvalidateRequest struct {
	Reason string `json:"reason"`
}
