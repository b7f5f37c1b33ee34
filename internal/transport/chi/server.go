package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/domain/batch"
	domrec "github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/domain/search/request"
	"github.com/huntkil/lexis/internal/index"
	logpkg "github.com/huntkil/lexis/internal/logger"
	"github.com/huntkil/lexis/internal/metrics"
	healthuc "github.com/huntkil/lexis/internal/usecase/health"
	rebuilduc "github.com/huntkil/lexis/internal/usecase/rebuild"
	recorduc "github.com/huntkil/lexis/internal/usecase/record"
	searchuc "github.com/huntkil/lexis/internal/usecase/search"
	suggestuc "github.com/huntkil/lexis/internal/usecase/suggest"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Indexes exposes registry statistics and per-type maintenance.
type Indexes interface {
	Route(name string) (*index.EntityIndex, error)
	Stats() index.Summary
}

// Server serves the lexis HTTP API.
type Server struct {
	search        *searchuc.Service
	suggest       *suggestuc.Service
	records       *recorduc.Service
	rebuild       *rebuilduc.Service
	health        *healthuc.Service
	indexes       Indexes
	limits        request.Limits
	adminTokens   []string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	suggest *suggestuc.Service,
	records *recorduc.Service,
	rebuild *rebuilduc.Service,
	health *healthuc.Service,
	indexes Indexes,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:  search,
		suggest: suggest,
		records: records,
		rebuild: rebuild,
		health:  health,
		indexes: indexes,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrUnknownEntityType, http.StatusNotFound, ErrorCodeUnknownEntityType),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorCodeIndexUnavailable),
		sentinelHandler(domain.ErrRebuildFailed, http.StatusInternalServerError, ErrorCodeRebuildFailed),
	}
	return s
}

// WithLimits sets the search page size limits.
func (s *Server) WithLimits(l request.Limits) *Server {
	s.limits = l
	return s
}

// WithAdminTokens protects /v1/admin routes with Bearer tokens.
func (s *Server) WithAdminTokens(tokens []string) *Server {
	s.adminTokens = tokens
	return s
}

// Handler builds the router with the standard middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Get("/suggest", s.Suggest)
		r.Get("/popular", s.Popular)
		r.Get("/stats", s.Stats)
		r.Post("/records/{type}", s.BatchUpsert)
		r.Post("/records/{type}/delete", s.BatchDelete)
		r.Put("/records/{type}/{id}", s.PutRecord)
		r.Delete("/records/{type}/{id}", s.DeleteRecord)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(s.adminTokens))
			r.Post("/rebuild", s.RebuildAll)
			r.Post("/rebuild/{type}", s.RebuildType)
			r.Post("/invalidate/{type}", s.Invalidate)
		})
	})
	return r
}

// Search handles GET /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	req, err := params.toRequest(s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchItem, 0, len(page.Results()))
	for _, res := range page.Results() {
		items = append(items, SearchItem{
			ID:         res.ID(),
			EntityType: res.EntityType(),
			Score:      res.Score(),
			Fields:     res.Fields(),
			URL:        res.URL(),
		})
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Items:       items,
		Total:       page.Total(),
		Limit:       req.Limit(),
		Offset:      req.Offset(),
		HasMore:     page.HasMore(),
		ElapsedMS:   float64(page.Elapsed().Microseconds()) / 1000,
		Unavailable: page.Unavailable(),
	})
}

// Suggest handles GET /v1/suggest?prefix=&limit=.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	out, err := s.suggest.Suggest(r.Context(), r.URL.Query().Get("prefix"), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse(out))
}

// Popular handles GET /v1/popular?limit=.
func (s *Server) Popular(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	out, err := s.suggest.Popular(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse(out))
}

// Stats handles GET /v1/stats.
func (s *Server) Stats(w http.ResponseWriter, _ *http.Request) {
	sum := s.indexes.Stats()
	resp := StatsResponse{Types: make([]TypeStats, 0, len(sum.Types)), Documents: sum.Documents, Terms: sum.Terms}
	for _, st := range sum.Types {
		resp.Types = append(resp.Types, TypeStats{
			EntityType: st.EntityType,
			Documents:  st.Documents,
			Terms:      st.Terms,
			AvgLength:  st.AvgLength,
			State:      string(st.State),
			Reason:     st.Reason,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutRecord handles PUT /v1/records/{type}/{id}.
func (s *Server) PutRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	var body recordBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	rec, err := body.record(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	r, entityType := withEntityType(r)
	if err := s.records.Put(r.Context(), entityType, rec); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRecord handles DELETE /v1/records/{type}/{id}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	r, entityType := withEntityType(r)
	if err := s.records.Delete(r.Context(), entityType, id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// maxBatchSize caps the number of items in one batch request.
const maxBatchSize = 1000

// BatchUpsert handles POST /v1/records/{type}. Items commit independently;
// per-item failures are reported in the body.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	r, entityType := withEntityType(r)
	if _, err := s.indexes.Route(entityType); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var body BatchUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := checkBatchSize(len(body.Records)); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	items := make([]BatchItem, len(body.Records))
	recs := make([]domrec.Record, 0, len(body.Records))
	pos := make([]int, 0, len(body.Records))
	for i, br := range body.Records {
		rec, err := recordBody{Attributes: br.Attributes}.record(br.ID)
		if err != nil {
			items[i] = BatchItem{ID: br.ID, Status: string(batch.StatusError), Error: err.Error()}
			continue
		}
		recs = append(recs, rec)
		pos = append(pos, i)
	}
	for j, res := range s.records.PutBatch(r.Context(), entityType, recs) {
		items[pos[j]] = s.batchItem(res)
	}
	writeJSON(w, http.StatusOK, batchResponse(items))
}

// BatchDelete handles POST /v1/records/{type}/delete.
func (s *Server) BatchDelete(w http.ResponseWriter, r *http.Request) {
	r, entityType := withEntityType(r)
	if _, err := s.indexes.Route(entityType); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var body BatchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := checkBatchSize(len(body.IDs)); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	results := s.records.DeleteBatch(r.Context(), entityType, body.IDs)
	items := make([]BatchItem, len(results))
	for i, res := range results {
		items[i] = s.batchItem(res)
	}
	writeJSON(w, http.StatusOK, batchResponse(items))
}

func checkBatchSize(n int) error {
	if n == 0 {
		return errors.New("batch is empty")
	}
	if n > maxBatchSize {
		return fmt.Errorf("batch too large: %d items (max %d)", n, maxBatchSize)
	}
	return nil
}

func (s *Server) batchItem(res batch.Result) BatchItem {
	item := BatchItem{ID: res.ID(), Status: string(res.Status())}
	if err := res.Err(); err != nil {
		item.Error = safeBatchMessage(err)
	}
	return item
}

// safeBatchMessage hides internal failures the same way error responses do.
func safeBatchMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidQuery) || errors.Is(err, domain.ErrInvalidSchema) {
		return trimOp(err)
	}
	for _, h := range []error{domain.ErrIndexUnavailable, domain.ErrNotFound} {
		if errors.Is(err, h) {
			return h.Error()
		}
	}
	return "internal error"
}

func batchResponse(items []BatchItem) BatchResponse {
	resp := BatchResponse{Items: items}
	for _, it := range items {
		if it.Status == string(batch.StatusOK) {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	return resp
}

// RebuildAll handles POST /v1/admin/rebuild. Per-type failures are reported
// in the body; the status is 500 only when every type failed.
func (s *Server) RebuildAll(w http.ResponseWriter, r *http.Request) {
	report := s.rebuild.RebuildAll(r.Context())
	resp := RebuildResponse{Items: make([]RebuildItem, 0, len(report.Outcomes))}
	for _, o := range report.Outcomes {
		resp.Items = append(resp.Items, rebuildItem(o))
	}
	status := http.StatusOK
	if len(report.Outcomes) > 0 && len(report.Failed()) == len(report.Outcomes) {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

// RebuildType handles POST /v1/admin/rebuild/{type}.
func (s *Server) RebuildType(w http.ResponseWriter, r *http.Request) {
	r, entityType := withEntityType(r)
	o, err := s.rebuild.Rebuild(r.Context(), entityType)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RebuildResponse{Items: []RebuildItem{rebuildItem(o)}})
}

// Invalidate handles POST /v1/admin/invalidate/{type}.
func (s *Server) Invalidate(w http.ResponseWriter, r *http.Request) {
	r, entityType := withEntityType(r)
	ix, err := s.indexes.Route(entityType)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var body InvalidateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	ix.Invalidate(body.Reason)
	logpkg.FromContext(r.Context()).Warn("index invalidated", zap.String("reason", body.Reason))
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func suggestResponse(in []suggestuc.Suggestion) SuggestResponse {
	items := make([]SuggestItem, len(in))
	for i, sg := range in {
		items[i] = SuggestItem{Term: sg.Term, Frequency: sg.Frequency}
	}
	return SuggestResponse{Items: items}
}

func rebuildItem(o rebuilduc.Outcome) RebuildItem {
	item := RebuildItem{
		EntityType: o.EntityType,
		Status:     metrics.StatusOf(o.Err),
		Documents:  o.Documents,
		ElapsedMS:  float64(o.Duration.Microseconds()) / 1000,
	}
	if o.Err != nil {
		item.Error = safeDomainMessage(o.Err)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

var sentinels = []error{
	domain.ErrInvalidQuery,
	domain.ErrInvalidSchema,
	domain.ErrUnknownEntityType,
	domain.ErrNotFound,
	domain.ErrIndexUnavailable,
	domain.ErrRebuildFailed,
}

// safeDomainMessage returns a client-safe message without exposing internals.
// Validation errors keep their detail, which only describes the request.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidQuery) || errors.Is(err, domain.ErrUnknownEntityType) {
		return trimOp(err)
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// trimOp strips wrapping prefixes up to the first sentinel text.
func trimOp(err error) string {
	msg := err.Error()
	for _, s := range sentinels {
		if i := strings.Index(msg, s.Error()); i >= 0 {
			return msg[i:]
		}
	}
	return msg
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// withEntityType adds the {type} path parameter to the request logger.
func withEntityType(r *http.Request) (*http.Request, string) {
	name := chi.URLParam(r, "type")
	return r.WithContext(logpkg.With(r.Context(), zap.String("entity_type", name))), name
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	if oe, ok := domain.OpContext(err); ok {
		log = log.With(zap.String("op", oe.Op))
		if chi.URLParam(r, "type") == "" {
			log = log.With(zap.String("entity_type", oe.EntityType))
		}
	}
	log.Warn("domain error", zap.Error(err))

	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, fmt.Sprintf("internal error (request %s)",
		chiMiddleware.GetReqID(r.Context())))
}
