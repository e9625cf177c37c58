package results

import (
	"encoding/json"
	"io"

	"sparqld/internal/engine"
	"sparqld/internal/rdf"
)

// JSONSerializer writes SPARQL 1.1 Query Results JSON.
type JSONSerializer struct{}

type jsonHead struct {
	Vars []string `json:"vars,omitempty"`
}

type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

type jsonBindings struct {
	Bindings []map[string]jsonTerm `json:"bindings"`
}

type jsonDocument struct {
	Head    jsonHead      `json:"head"`
	Boolean *bool         `json:"boolean,omitempty"`
	Results *jsonBindings `json:"results,omitempty"`
}

func (JSONSerializer) MediaType() string { return "application/sparql-results+json" }

func (s JSONSerializer) MediaTypes() []string {
	return []string{s.MediaType(), "application/json"}
}

func (JSONSerializer) FormatIRI() rdf.IRI { return rdf.NSFormats + "SPARQL_Results_JSON" }

func (JSONSerializer) Supports(kind engine.ResultKind) bool { return supportsBindings(kind) }

func (JSONSerializer) Serialize(w io.Writer, res *engine.Result) error {
	doc := jsonDocument{}
	if res.Kind == engine.ResultBoolean {
		b := res.Boolean
		doc.Boolean = &b
	} else {
		doc.Head.Vars = res.Vars
		doc.Results = &jsonBindings{Bindings: []map[string]jsonTerm{}}
		for b := range res.Bindings() {
			row := make(map[string]jsonTerm, len(b))
			for _, v := range res.Vars {
				if t, ok := b[v]; ok {
					row[v] = toJSONTerm(t)
				}
			}
			doc.Results.Bindings = append(doc.Results.Bindings, row)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

func toJSONTerm(t rdf.Term) jsonTerm {
	switch v := t.(type) {
	case rdf.IRI:
		return jsonTerm{Type: "uri", Value: string(v)}
	case rdf.BlankNode:
		return jsonTerm{Type: "bnode", Value: string(v)}
	case rdf.Literal:
		return jsonTerm{Type: "literal", Value: v.Lexical, Lang: v.Lang, Datatype: string(v.Datatype)}
	default:
		return jsonTerm{Type: "literal", Value: t.Value()}
	}
}
