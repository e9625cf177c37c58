package api

import (
	"net/http"

	"sparqld/internal/conneg"
	"sparqld/internal/engine"
	"sparqld/internal/errors"
	"sparqld/internal/protocol"
	"sparqld/internal/sd"
	"sparqld/internal/sparql"
	"sparqld/internal/store"
)

const turtleMediaType = "text/turtle"

// handleSPARQL serves GET and POST /sparql. A request without a query gets
// the service description.
func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodPost {
		s.fail(w, r, errors.NewEndpointError(errors.MethodNotAllowed, "Method not allowed: "+r.Method, nil))
		return
	}

	p, err := protocol.Parse(r, s.cfg.Server.MaxBodyBytes)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if !p.HasQuery {
		s.serveServiceDescription(w, r, p)
		return
	}
	s.serveQuery(w, r, p)
}

func (s *Server) serveQuery(w http.ResponseWriter, r *http.Request, p *protocol.Parsed) {
	ctx := r.Context()

	q, err := sparql.Parse(p.Query)
	if err != nil {
		s.fail(w, r, errors.NewParserError(err))
		return
	}

	st := s.storeFor(r)
	ds, err := p.DatasetFor(ctx, st, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	outcome, err := s.dispatcher.Evaluate(ctx, q, st, ds)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	mediaType, body, err := s.registry.Render(outcome.Result, r.Header.Values("Accept"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordQuery(outcome.Strategy)
	}

	h := w.Header()
	h.Add("Vary", "Accept")
	if s.cfg.Store.LanguageAware {
		h.Add("Vary", "Accept-Language")
	}
	h.Set("Content-Type", mediaType)
	if outcome.HasLastModified {
		h.Set("Last-Modified", outcome.LastModified.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

// storeFor returns the store a request reads from: a language-filtering
// view when the server is language aware and the client states a
// preference, the shared store otherwise.
func (s *Server) storeFor(r *http.Request) store.QuadStore {
	if !s.cfg.Store.LanguageAware {
		return s.store
	}
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return s.store
	}
	ls := store.NewLanguageStore(s.store, conneg.ParsePreferenceList(header))
	if ls.Passthrough() {
		return s.store
	}
	return ls
}

func (s *Server) serveServiceDescription(w http.ResponseWriter, r *http.Request, p *protocol.Parsed) {
	d, err := sd.Build(r.Context(), s.store, sd.Options{
		SupportedLanguages: engine.SupportedLanguages(),
		ResultFormats:      s.registry.FormatIRIs(),
		ExtensionFunctions: s.cfg.ServiceDescription.ExtensionFunctions,
		Features:           s.cfg.ServiceDescription.Features,
		GraphLimit:         s.cfg.ServiceDescription.GraphLimit,
	})
	if err != nil {
		s.logger.Error("Service description failed", map[string]interface{}{
			"error":     err.Error(),
			"requestID": GetRequestID(r.Context()),
		})
		if s.metrics != nil {
			s.metrics.RecordError(errors.InternalError)
		}
		WriteText(w, "*** Failed to generate service description: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", turtleMediaType)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(d.Turtle(protocol.EndpointURL(r, p.URL))))
	}
}

// fail converts err into the response and logs it. Server-side failures
// log at error level, client mistakes at warn.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	status := WriteError(w, err)
	if s.metrics != nil {
		s.metrics.RecordError(code)
	}

	fields := map[string]interface{}{
		"code":      string(code),
		"status":    status,
		"error":     err.Error(),
		"requestID": GetRequestID(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", fields)
	} else {
		s.logger.Warn("Request rejected", fields)
	}
}
