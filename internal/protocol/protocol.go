// Package protocol decodes SPARQL Protocol requests: where the query text
// comes from, and which dataset it is evaluated against.
package protocol

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
	"sparqld/internal/sparql"
	"sparqld/internal/store"
)

// Protocol parameter names and media types.
const (
	ParamQuery           = "query"
	ParamDefaultGraphURI = "default-graph-uri"
	ParamNamedGraphURI   = "named-graph-uri"

	MediaTypeSPARQLQuery = "application/sparql-query"
	MediaTypeForm        = "application/x-www-form-urlencoded"
)

// Request is the content of a form-encoded POST body.
type Request struct {
	Query         string
	HasQuery      bool
	DefaultGraphs []string
	NamedGraphs   []string
}

// DecodeForm reads a form body into a Request.
func DecodeForm(form url.Values) Request {
	q, has := form[ParamQuery]
	r := Request{
		DefaultGraphs: form[ParamDefaultGraphURI],
		NamedGraphs:   form[ParamNamedGraphURI],
	}
	if has && len(q) > 0 {
		r.Query, r.HasQuery = q[0], true
	}
	return r
}

// Dataset converts the form's graph lists. The second result is false when
// the form names no graphs, so callers fall back to URL parameters.
func (r Request) Dataset() (store.Dataset, bool) {
	if len(r.DefaultGraphs) == 0 && len(r.NamedGraphs) == 0 {
		return store.Dataset{}, false
	}
	return store.NewDataset(toIRIs(r.DefaultGraphs), toIRIs(r.NamedGraphs)), true
}

// DatasetFromParams collects default-graph-uri and named-graph-uri values in
// order of appearance, duplicates included.
func DatasetFromParams(params url.Values) store.Dataset {
	return store.NewDataset(toIRIs(params[ParamDefaultGraphURI]), toIRIs(params[ParamNamedGraphURI]))
}

// ResolveDataset returns the dataset named by params, or the store's
// default dataset when params name none. Explicit scoping always wins.
func ResolveDataset(ctx context.Context, params url.Values, st store.QuadStore) (store.Dataset, error) {
	if ds := DatasetFromParams(params); !ds.IsEmpty() {
		return ds, nil
	}
	ds, err := st.DefaultDataset(ctx)
	if err != nil {
		return store.Dataset{}, errors.NewEvaluationFailure("Failed to read the default dataset", err)
	}
	return ds, nil
}

func toIRIs(values []string) []rdf.IRI {
	if len(values) == 0 {
		return nil
	}
	out := make([]rdf.IRI, len(values))
	for i, v := range values {
		out[i] = rdf.IRI(v)
	}
	return out
}

// Parsed is a decoded protocol request.
type Parsed struct {
	// URL is the request URL after '+' normalization.
	URL *url.URL
	// Params are the URL query parameters.
	Params url.Values
	// Query is the query text; empty when HasQuery is false.
	Query    string
	HasQuery bool
	// Form is set for form-encoded POST bodies.
	Form *Request
}

// NormalizeRequestURI treats every '+' in the raw request URI as an encoded
// space before the URI is parsed.
func NormalizeRequestURI(raw string) string {
	return strings.ReplaceAll(raw, "+", "%20")
}

// Parse decodes r. GET takes the query from the URL; POST takes it from the
// body according to Content-Type. Body reads are capped at maxBody bytes
// when maxBody > 0. A request without a query is valid: it asks for the
// service description.
func Parse(r *http.Request, maxBody int64) (*Parsed, error) {
	raw := r.RequestURI
	if raw == "" {
		raw = r.URL.RequestURI()
	}
	u, err := url.ParseRequestURI(NormalizeRequestURI(raw))
	if err != nil {
		return nil, errors.NewBadRequest("Failed to access URL components", err)
	}
	params, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, errors.NewBadRequest("Failed to parse URL query parameters", err)
	}

	p := &Parsed{URL: u, Params: params}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if q, ok := params[ParamQuery]; ok && len(q) > 0 {
			p.Query, p.HasQuery = q[0], true
		}
	case http.MethodPost:
		if err := p.readBody(r, maxBody); err != nil {
			return nil, err
		}
	default:
		return nil, errors.NewEndpointError(errors.MethodNotAllowed, "Method not allowed: "+r.Method, nil)
	}

	if p.HasQuery && strings.TrimSpace(p.Query) == "" {
		return nil, errors.NewBadRequest("No query supplied", nil)
	}
	return p, nil
}

func (p *Parsed) readBody(r *http.Request, maxBody int64) error {
	mediaType := MediaTypeSPARQLQuery
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return errors.NewBadRequest("Unrecognized Content-Type: "+ct, err)
		}
		mediaType = mt
	}

	var body io.Reader = http.NoBody
	if r.Body != nil {
		body = r.Body
	}
	if maxBody > 0 {
		body = io.LimitReader(body, maxBody+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return errors.NewBadRequest("Failed to read request body", err)
	}
	if maxBody > 0 && int64(len(data)) > maxBody {
		return errors.NewBadRequest("Request body too large", nil)
	}

	switch mediaType {
	case MediaTypeSPARQLQuery:
		if len(data) == 0 {
			return errors.NewBadRequest("No query supplied", nil)
		}
		p.Query, p.HasQuery = string(data), true
	case MediaTypeForm:
		form, err := url.ParseQuery(string(data))
		if err != nil {
			return errors.NewBadRequest("Failed to decode form data", err)
		}
		req := DecodeForm(form)
		p.Form = &req
		p.Query, p.HasQuery = req.Query, req.HasQuery
	default:
		return errors.NewBadRequest("Unrecognized Content-Type: "+mediaType, nil)
	}
	return nil
}

// Dataset resolves the request's dataset: a form dataset first, then URL
// parameters, then the store default.
func (p *Parsed) Dataset(ctx context.Context, st store.QuadStore) (store.Dataset, error) {
	return p.DatasetFor(ctx, st, nil)
}

// DatasetFor resolves the dataset for q. Protocol parameters win; the
// query's FROM and FROM NAMED clauses apply only when the request names no
// graphs.
func (p *Parsed) DatasetFor(ctx context.Context, st store.QuadStore, q *sparql.Query) (store.Dataset, error) {
	if p.Form != nil {
		if ds, ok := p.Form.Dataset(); ok {
			return ds, nil
		}
	}
	if ds := DatasetFromParams(p.Params); !ds.IsEmpty() {
		return ds, nil
	}
	if q != nil && (len(q.From) > 0 || len(q.FromNamed) > 0) {
		return store.NewDataset(q.From, q.FromNamed), nil
	}
	return ResolveDataset(ctx, p.Params, st)
}

// EndpointURL is the request URL without protocol parameters or fragment,
// made absolute against the request's host.
func EndpointURL(r *http.Request, u *url.URL) string {
	e := *u
	e.Fragment = ""
	e.RawFragment = ""

	params, _ := url.ParseQuery(u.RawQuery)
	for name := range params {
		switch strings.ToLower(name) {
		case ParamQuery, ParamDefaultGraphURI, ParamNamedGraphURI:
			params.Del(name)
		}
	}
	e.RawQuery = params.Encode()

	if e.Host == "" {
		e.Host = r.Host
	}
	if e.Scheme == "" {
		e.Scheme = "http"
		if r.TLS != nil {
			e.Scheme = "https"
		}
	}
	return e.String()
}
