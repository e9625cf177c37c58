package results

import (
	"encoding/xml"
	"io"

	"sparqld/internal/engine"
	"sparqld/internal/rdf"
)

const sparqlResultsNS = "http://www.w3.org/2005/sparql-results#"

// XMLSerializer writes SPARQL Query Results XML.
type XMLSerializer struct{}

type xmlVariable struct {
	Name string `xml:"name,attr"`
}

type xmlLiteral struct {
	Lang     string `xml:"xml:lang,attr,omitempty"`
	Datatype string `xml:"datatype,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type xmlBinding struct {
	Name    string      `xml:"name,attr"`
	URI     *string     `xml:"uri,omitempty"`
	BNode   *string     `xml:"bnode,omitempty"`
	Literal *xmlLiteral `xml:"literal,omitempty"`
}

type xmlResult struct {
	Bindings []xmlBinding `xml:"binding"`
}

type xmlHead struct {
	Variables []xmlVariable `xml:"variable"`
}

type xmlResults struct {
	Results []xmlResult `xml:"result"`
}

type xmlDocument struct {
	XMLName xml.Name    `xml:"sparql"`
	NS      string      `xml:"xmlns,attr"`
	Head    xmlHead     `xml:"head"`
	Boolean *bool       `xml:"boolean,omitempty"`
	Results *xmlResults `xml:"results,omitempty"`
}

func (XMLSerializer) MediaType() string { return "application/sparql-results+xml" }

func (s XMLSerializer) MediaTypes() []string {
	return []string{s.MediaType(), "application/xml"}
}

func (XMLSerializer) FormatIRI() rdf.IRI { return rdf.NSFormats + "SPARQL_Results_XML" }

func (XMLSerializer) Supports(kind engine.ResultKind) bool { return supportsBindings(kind) }

func (XMLSerializer) Serialize(w io.Writer, res *engine.Result) error {
	doc := xmlDocument{NS: sparqlResultsNS}
	if res.Kind == engine.ResultBoolean {
		b := res.Boolean
		doc.Boolean = &b
	} else {
		for _, v := range res.Vars {
			doc.Head.Variables = append(doc.Head.Variables, xmlVariable{Name: v})
		}
		doc.Results = &xmlResults{}
		for b := range res.Bindings() {
			var row xmlResult
			for _, v := range res.Vars {
				if t, ok := b[v]; ok {
					row.Bindings = append(row.Bindings, toXMLBinding(v, t))
				}
			}
			doc.Results.Results = append(doc.Results.Results, row)
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXMLBinding(name string, t rdf.Term) xmlBinding {
	b := xmlBinding{Name: name}
	switch v := t.(type) {
	case rdf.IRI:
		s := string(v)
		b.URI = &s
	case rdf.BlankNode:
		s := string(v)
		b.BNode = &s
	case rdf.Literal:
		b.Literal = &xmlLiteral{Lang: v.Lang, Datatype: string(v.Datatype), Value: v.Lexical}
	default:
		b.Literal = &xmlLiteral{Value: t.Value()}
	}
	return b
}
