package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/huntkil/lexis/internal/db/memory"
	"github.com/huntkil/lexis/internal/domain/entity"
	"github.com/huntkil/lexis/internal/domain/entity/field"
	"github.com/huntkil/lexis/internal/index"
	reporecord "github.com/huntkil/lexis/internal/repository/record"
	healthuc "github.com/huntkil/lexis/internal/usecase/health"
	rebuilduc "github.com/huntkil/lexis/internal/usecase/rebuild"
	recorduc "github.com/huntkil/lexis/internal/usecase/record"
	searchuc "github.com/huntkil/lexis/internal/usecase/search"
	suggestuc "github.com/huntkil/lexis/internal/usecase/suggest"
)

type fixture struct {
	reg     *index.Registry
	handler http.Handler
}

func newFixture(t *testing.T, adminTokens ...string) *fixture {
	t.Helper()
	return newLoggedFixture(t, nil, adminTokens...)
}

func newLoggedFixture(t *testing.T, logger *zap.Logger, adminTokens ...string) *fixture {
	t.Helper()
	word, err := entity.New("word", "words",
		[]field.Field{field.Reconstruct("title", 2), field.Reconstruct("body", 1)},
		[]string{"lang"},
		entity.WithNameField("title"), entity.WithURLPattern("/words/{id}-{slug}"))
	if err != nil {
		t.Fatalf("entity.New: %v", err)
	}
	reg := index.NewRegistry(index.DefaultParams())
	if _, err := reg.Register(word); err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg.Seal()

	store := memory.NewStore()
	repo := reporecord.New(store)
	writer := recorduc.StoreFunc(func(ctx context.Context) (recorduc.Tx, error) {
		tx, err := repo.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return tx, nil
	})

	srv := NewServer(
		searchuc.New(reg, repo),
		suggestuc.New(reg, nil),
		recorduc.New(writer, reg, nil),
		rebuilduc.New(reg, repo, 1, nil),
		healthuc.New(store, reg),
		reg,
		logger,
	).WithAdminTokens(adminTokens)
	return &fixture{reg: reg, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) put(t *testing.T, id, body string) {
	t.Helper()
	rr := f.do(t, http.MethodPut, "/v1/records/word/"+id, body)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("PUT word/%s: status %d, body %s", id, rr.Code, rr.Body.String())
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func seed(t *testing.T, f *fixture) {
	t.Helper()
	f.put(t, "1", `{"attributes":{"title":"Apple","body":"banana","lang":"en"}}`)
	f.put(t, "2", `{"attributes":{"title":"Apple pie","body":"apple apple","lang":"de"}}`)
	f.put(t, "3", `{"attributes":{"title":"Cherry","body":"cherry","lang":"en"}}`)
}

func TestSearch_Ranked(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	rr := f.do(t, http.MethodGet, "/v1/search?q=apple", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decode[SearchResponse](t, rr)
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("total %d, items %d; want 2, 2", resp.Total, len(resp.Items))
	}
	if resp.Items[0].ID != 2 || resp.Items[1].ID != 1 {
		t.Errorf("order = [%d %d], want [2 1]", resp.Items[0].ID, resp.Items[1].ID)
	}
	if resp.Items[0].URL != "/words/2-apple-pie" {
		t.Errorf("url = %q", resp.Items[0].URL)
	}
	if resp.Limit != 20 || resp.Offset != 0 || resp.HasMore {
		t.Errorf("paging = limit %d offset %d more %v", resp.Limit, resp.Offset, resp.HasMore)
	}
}

func TestSearch_FilterAndPaging(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	resp := decode[SearchResponse](t, f.do(t, http.MethodGet, "/v1/search?q=apple&filter=word.lang:en", ""))
	if len(resp.Items) != 1 || resp.Items[0].ID != 1 {
		t.Fatalf("filtered items = %+v", resp.Items)
	}

	resp = decode[SearchResponse](t, f.do(t, http.MethodGet, "/v1/search?q=apple&limit=1&offset=0", ""))
	if len(resp.Items) != 1 || !resp.HasMore || resp.Total != 2 {
		t.Errorf("first page = %+v", resp)
	}
}

func TestSearch_Errors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		target string
		status int
		code   ErrorCode
	}{
		{"unknown type", "/v1/search?q=apple&type=ghost", http.StatusNotFound, ErrorCodeUnknownEntityType},
		{"bad sort", "/v1/search?q=apple&sort=random", http.StatusBadRequest, ErrorCodeInvalidQuery},
		{"negative limit", "/v1/search?q=apple&limit=-1", http.StatusBadRequest, ErrorCodeInvalidQuery},
		{"non numeric limit", "/v1/search?q=apple&limit=ten", http.StatusBadRequest, ErrorCodeInvalidQuery},
		{"malformed filter", "/v1/search?q=apple&filter=lang", http.StatusBadRequest, ErrorCodeInvalidQuery},
		{"not filterable", "/v1/search?q=apple&filter=word.title:x", http.StatusBadRequest, ErrorCodeInvalidQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodGet, tt.target, "")
			if rr.Code != tt.status {
				t.Fatalf("status %d, want %d (body %s)", rr.Code, tt.status, rr.Body.String())
			}
			if got := decode[ErrorResponse](t, rr); got.Code != tt.code {
				t.Errorf("code %q, want %q", got.Code, tt.code)
			}
		})
	}
}

func TestSearch_IndexUnavailable(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	ix, _ := f.reg.Route("word")
	ix.Invalidate("test")

	rr := f.do(t, http.MethodGet, "/v1/search?q=apple", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rr.Code)
	}
}

func TestRecords_PutDelete(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	if rr := f.do(t, http.MethodDelete, "/v1/records/word/2", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("DELETE status %d", rr.Code)
	}
	resp := decode[SearchResponse](t, f.do(t, http.MethodGet, "/v1/search?q=apple", ""))
	if len(resp.Items) != 1 || resp.Items[0].ID != 1 {
		t.Errorf("items after delete = %+v", resp.Items)
	}

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"bad id", http.MethodPut, "/v1/records/word/abc", `{"attributes":{}}`, http.StatusBadRequest},
		{"zero id", http.MethodPut, "/v1/records/word/0", `{"attributes":{}}`, http.StatusBadRequest},
		{"bad json", http.MethodPut, "/v1/records/word/4", `{`, http.StatusBadRequest},
		{"bad attribute", http.MethodPut, "/v1/records/word/4", `{"attributes":{"title":5}}`, http.StatusBadRequest},
		{"unknown type", http.MethodPut, "/v1/records/ghost/4", `{"attributes":{"title":"x"}}`, http.StatusNotFound},
		{"delete unknown type", http.MethodDelete, "/v1/records/ghost/4", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := f.do(t, tt.method, tt.target, tt.body); rr.Code != tt.status {
				t.Errorf("status %d, want %d (body %s)", rr.Code, tt.status, rr.Body.String())
			}
		})
	}
}

func TestRecords_Batch(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/records/word", `{"records":[
		{"id":1,"attributes":{"title":"Apple","lang":"en"}},
		{"id":0,"attributes":{"title":"Zero"}},
		{"id":2,"attributes":{"title":5}},
		{"id":3,"attributes":{"title":"Apple tart","lang":"fr"}}
	]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[BatchResponse](t, rr)
	if resp.Succeeded != 2 || resp.Failed != 2 || len(resp.Items) != 4 {
		t.Fatalf("batch = %+v", resp)
	}
	if resp.Items[1].Status != "error" || resp.Items[2].Status != "error" || resp.Items[3].Status != "ok" {
		t.Errorf("items = %+v", resp.Items)
	}

	search := decode[SearchResponse](t, f.do(t, http.MethodGet, "/v1/search?q=apple", ""))
	if search.Total != 2 {
		t.Errorf("total after batch = %d, want 2", search.Total)
	}

	rr = f.do(t, http.MethodPost, "/v1/records/word/delete", `{"ids":[1,3]}`)
	if del := decode[BatchResponse](t, rr); del.Succeeded != 2 {
		t.Errorf("delete batch = %+v", del)
	}

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"unknown type", "/v1/records/ghost", `{"records":[{"id":1}]}`, http.StatusNotFound},
		{"empty", "/v1/records/word", `{"records":[]}`, http.StatusBadRequest},
		{"bad json", "/v1/records/word/delete", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := f.do(t, http.MethodPost, tt.target, tt.body); rr.Code != tt.status {
				t.Errorf("status %d, want %d", rr.Code, tt.status)
			}
		})
	}
}

func TestSuggestAndPopular(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	resp := decode[SuggestResponse](t, f.do(t, http.MethodGet, "/v1/suggest?prefix=ap", ""))
	if len(resp.Items) != 1 || resp.Items[0].Term != "apple" || resp.Items[0].Frequency != 2 {
		t.Errorf("suggest = %+v", resp.Items)
	}

	resp = decode[SuggestResponse](t, f.do(t, http.MethodGet, "/v1/popular?limit=1", ""))
	if len(resp.Items) != 1 || resp.Items[0].Term != "apple" {
		t.Errorf("popular = %+v", resp.Items)
	}

	if rr := f.do(t, http.MethodGet, "/v1/suggest?prefix=a&limit=x", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit status %d", rr.Code)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	resp := decode[StatsResponse](t, f.do(t, http.MethodGet, "/v1/stats", ""))
	if resp.Documents != 3 || len(resp.Types) != 1 {
		t.Fatalf("stats = %+v", resp)
	}
	if resp.Types[0].EntityType != "word" || resp.Types[0].State != string(index.StateReady) {
		t.Errorf("type stats = %+v", resp.Types[0])
	}
}

func TestAdmin_RebuildAndInvalidate(t *testing.T) {
	f := newFixture(t, "secret")
	seed(t, f)
	auth := []string{"Authorization", "Bearer secret"}

	if rr := f.do(t, http.MethodPost, "/v1/admin/rebuild", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status %d, want 401", rr.Code)
	}

	rr := f.do(t, http.MethodPost, "/v1/admin/invalidate/word", `{"reason":"drift"}`, auth...)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("invalidate status %d", rr.Code)
	}
	if rr := f.do(t, http.MethodGet, "/healthz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("health after invalidate = %d, want 503", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/v1/admin/rebuild/word", "", auth...)
	if rr.Code != http.StatusOK {
		t.Fatalf("rebuild status %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decode[RebuildResponse](t, rr)
	if len(resp.Items) != 1 || resp.Items[0].Documents != 3 || resp.Items[0].Status != "ok" {
		t.Errorf("rebuild = %+v", resp.Items)
	}

	rr = f.do(t, http.MethodPost, "/v1/admin/rebuild", "", auth...)
	if rr.Code != http.StatusOK {
		t.Fatalf("rebuild all status %d", rr.Code)
	}
	if rr := f.do(t, http.MethodPost, "/v1/admin/rebuild/ghost", "", auth...); rr.Code != http.StatusNotFound {
		t.Errorf("rebuild unknown type status %d, want 404", rr.Code)
	}

	health := decode[HealthResponse](t, f.do(t, http.MethodGet, "/healthz", ""))
	if health.Status != "ok" || health.Checks["index:word"] != "ok" {
		t.Errorf("health = %+v", health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/v1/stats", "")
	rr := f.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "lexis_http_requests_total") {
		t.Error("expected http metrics in output")
	}
}

func TestTypeScopedLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newLoggedFixture(t, zap.New(core))

	if rr := f.do(t, http.MethodPost, "/v1/admin/invalidate/word", `{"reason":"drill"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("status %d", rr.Code)
	}
	entries := logs.FilterMessage("index invalidated").All()
	if len(entries) != 1 {
		t.Fatalf("got %d invalidation logs, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["entity_type"] != "word" || ctx["reason"] != "drill" || ctx["request_id"] == "" {
		t.Errorf("log context = %v", ctx)
	}

	f.do(t, http.MethodPut, "/v1/records/ghost/1", `{"attributes":{"title":"x"}}`)
	warn := logs.FilterMessage("domain error").All()
	if len(warn) != 1 || warn[0].ContextMap()["entity_type"] != "ghost" {
		t.Errorf("domain error logs = %+v", warn)
	}
}
