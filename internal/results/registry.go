// Package results serializes query results and negotiates the format from
// the client's Accept header.
package results

import (
	"bytes"
	"io"
	"strings"

	"sparqld/internal/conneg"
	"sparqld/internal/engine"
	"sparqld/internal/errors"
	"sparqld/internal/rdf"
)

// Serializer renders one result format.
type Serializer interface {
	// MediaType is the canonical media type written in Content-Type.
	MediaType() string
	// MediaTypes lists every media type the serializer answers to,
	// canonical first.
	MediaTypes() []string
	// FormatIRI names the format in service descriptions; empty when the
	// format has no registered IRI.
	FormatIRI() rdf.IRI
	// Supports reports whether the serializer can render a result shape.
	Supports(kind engine.ResultKind) bool
	// Serialize writes res to w. Errors raised by the result sequence are
	// left for the caller to read from res.Err.
	Serialize(w io.Writer, res *engine.Result) error
}

// Registry holds the serializers available for negotiation, in
// registration order. It is built once at startup.
type Registry struct {
	serializers []Serializer
}

// NewRegistry returns a registry holding the given serializers.
func NewRegistry(serializers ...Serializer) *Registry {
	return &Registry{serializers: serializers}
}

// DefaultRegistry returns the standard SPARQL result formats. JSON is the
// first choice for bindings and booleans, N-Triples for triples.
func DefaultRegistry() *Registry {
	return NewRegistry(JSONSerializer{}, XMLSerializer{}, TSVSerializer{}, CSVSerializer{}, NTriplesSerializer{}, TurtleSerializer{})
}

// Register adds a serializer after the existing ones.
func (r *Registry) Register(s Serializer) {
	r.serializers = append(r.serializers, s)
}

// Serializers returns the registered serializers.
func (r *Registry) Serializers() []Serializer {
	return append([]Serializer(nil), r.serializers...)
}

// FormatIRIs lists the format IRIs of the registered serializers.
func (r *Registry) FormatIRIs() []rdf.IRI {
	var out []rdf.IRI
	for _, s := range r.serializers {
		if iri := s.FormatIRI(); iri != "" {
			out = append(out, iri)
		}
	}
	return out
}

// Negotiate picks the serializer for a result shape from an Accept header
// value. An empty header accepts anything.
func (r *Registry) Negotiate(kind engine.ResultKind, accept string) (Serializer, bool) {
	if accept == "" {
		accept = "*/*"
	}
	prefs := conneg.ParsePreferenceList(accept)
	byType := make(map[string]Serializer)
	var candidates []string
	for _, s := range r.serializers {
		if !s.Supports(kind) || refused(s, prefs) {
			continue
		}
		for _, mt := range s.MediaTypes() {
			if _, dup := byType[mt]; !dup {
				byType[mt] = s
				candidates = append(candidates, mt)
			}
		}
	}

	mt, ok := conneg.Negotiate(candidates, prefs, "*/*")
	if !ok {
		return nil, false
	}
	return byType[mt], true
}

// refused reports whether the client gave any of the serializer's media
// types a quality of 0.
func refused(s Serializer, prefs []conneg.Entry) bool {
	for _, p := range prefs {
		if p.Quality > 0 {
			continue
		}
		for _, mt := range s.MediaTypes() {
			if strings.EqualFold(mt, p.Token) {
				return true
			}
		}
	}
	return false
}

// Render serializes res in the format negotiated from the first Accept
// header value. Multiple Accept headers are not merged. It fails with
// NOT_ACCEPTABLE when no serializer matches, without consuming res.
func (r *Registry) Render(res *engine.Result, acceptValues []string) (string, []byte, error) {
	accept := ""
	if len(acceptValues) > 0 {
		accept = acceptValues[0]
	}
	s, ok := r.Negotiate(res.Kind, accept)
	if !ok {
		return "", nil, errors.NewNotAcceptable("No acceptable result format for " + res.Kind.String() + " results")
	}

	var buf bytes.Buffer
	if err := s.Serialize(&buf, res); err != nil {
		return "", nil, errors.Wrap(err, "failed to serialize results")
	}
	if err := res.Err(); err != nil {
		return "", nil, err
	}
	return s.MediaType(), buf.Bytes(), nil
}

func supportsBindings(kind engine.ResultKind) bool {
	return kind == engine.ResultBindings || kind == engine.ResultBoolean
}
