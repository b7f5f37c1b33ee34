package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/huntkil/lexis/internal/domain"
	domrec "github.com/huntkil/lexis/internal/domain/record"
	"github.com/huntkil/lexis/internal/domain/search/filter"
	"github.com/huntkil/lexis/internal/domain/search/order"
	"github.com/huntkil/lexis/internal/domain/search/request"
)

// searchParams are the query parameters of GET /v1/search.
type searchParams struct {
	Q         string
	Types     []string
	Filters   []string // "type.attr:v1,v2"
	Sort      string
	Limit     int
	Offset    int
	Highlight bool
}

func bindSearchParams(r *http.Request) (searchParams, error) {
	q := r.URL.Query()
	var p searchParams
	binds := []struct {
		name string
		dest any
	}{
		{"q", &p.Q},
		{"type", &p.Types},
		{"filter", &p.Filters},
		{"sort", &p.Sort},
		{"limit", &p.Limit},
		{"offset", &p.Offset},
		{"highlight", &p.Highlight},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return searchParams{}, fmt.Errorf("%w: parameter %s: %w", domain.ErrInvalidQuery, b.name, err)
		}
	}
	return p, nil
}

func (p searchParams) toRequest(lim request.Limits) (request.Request, error) {
	filters, err := filter.Parse(p.Filters)
	if err != nil {
		return request.Request{}, err
	}
	o, err := order.Parse(p.Sort)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	req, err := request.New(p.Q, p.Types, filters, o, p.Limit, p.Offset, p.Highlight, lim)
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return req, nil
}

// pathID binds the {id} path parameter.
func pathID(r *http.Request) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

// queryInt binds an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	var v int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return 0, fmt.Errorf("parameter %s: %w", name, err)
	}
	return v, nil
}

// recordBody is the body of PUT /v1/records/{type}/{id}. Each attribute is
// either a string or an array of strings.
type recordBody struct {
	Attributes map[string]json.RawMessage `json:"attributes"`
}

func (b recordBody) record(id int64) (domrec.Record, error) {
	scalars, lists, err := b.split()
	if err != nil {
		return domrec.Record{}, err
	}
	return domrec.New(id, scalars, lists)
}

func (b recordBody) split() (map[string]string, map[string][]string, error) {
	scalars := make(map[string]string)
	lists := make(map[string][]string)
	for name, raw := range b.Attributes {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			scalars[name] = s
			continue
		}
		var l []string
		if err := json.Unmarshal(raw, &l); err == nil {
			lists[name] = l
			continue
		}
		return nil, nil, fmt.Errorf("attribute %q must be a string or an array of strings", name)
	}
	return scalars, lists, nil
}
