// Package rdf holds the RDF term model shared by the store, the query engine
// and the result serializers.
package rdf

import (
	"strings"
)

// TermKind identifies RDF term types.
type TermKind uint8

const (
	// KindIRI is an IRI term.
	KindIRI TermKind = iota
	// KindBlank is a blank node.
	KindBlank
	// KindLiteral is a literal.
	KindLiteral
)

// Term is a value that can appear in a triple.
//
// All implementations are comparable, so terms can be used directly as map keys.
type Term interface {
	Kind() TermKind
	// Value returns the IRI string, blank node label or lexical form.
	Value() string
	String() string
}

// IRI is an RDF IRI.
type IRI string

// Kind returns KindIRI.
func (i IRI) Kind() TermKind { return KindIRI }

// Value returns the IRI string.
func (i IRI) Value() string { return string(i) }

// String returns the IRI in N-Triples form.
func (i IRI) String() string { return "<" + EscapeIRI(string(i)) + ">" }

// BlankNode is an RDF blank node.
type BlankNode string

// Kind returns KindBlank.
func (b BlankNode) Kind() TermKind { return KindBlank }

// Value returns the blank node label without the "_:" prefix.
func (b BlankNode) Value() string { return string(b) }

// String returns the blank node in N-Triples form.
func (b BlankNode) String() string { return "_:" + string(b) }

// Literal is an RDF literal. An empty Datatype means xsd:string, or
// rdf:langString when Lang is set.
type Literal struct {
	Lexical  string
	Datatype IRI
	Lang     string
}

// NewLiteral returns a simple string literal.
func NewLiteral(lexical string) Literal {
	return Literal{Lexical: lexical}
}

// NewLangLiteral returns a language-tagged literal. Language tags are
// compared case-insensitively, so they are stored lowercased.
func NewLangLiteral(lexical, lang string) Literal {
	return Literal{Lexical: lexical, Lang: strings.ToLower(lang)}
}

// NewTypedLiteral returns a literal with the given datatype. xsd:string is
// normalized to the empty datatype so that equal literals compare equal.
func NewTypedLiteral(lexical string, datatype IRI) Literal {
	if datatype == XSDString {
		datatype = ""
	}
	return Literal{Lexical: lexical, Datatype: datatype}
}

// Kind returns KindLiteral.
func (l Literal) Kind() TermKind { return KindLiteral }

// Value returns the lexical form.
func (l Literal) Value() string { return l.Lexical }

// DatatypeIRI returns the effective datatype of the literal.
func (l Literal) DatatypeIRI() IRI {
	switch {
	case l.Lang != "":
		return RDFLangString
	case l.Datatype == "":
		return XSDString
	default:
		return l.Datatype
	}
}

// String returns the literal in N-Triples form.
func (l Literal) String() string {
	var sb strings.Builder
	sb.WriteByte('"')
	sb.WriteString(EscapeString(l.Lexical))
	sb.WriteByte('"')
	if l.Lang != "" {
		sb.WriteByte('@')
		sb.WriteString(l.Lang)
	} else if l.Datatype != "" {
		sb.WriteString("^^")
		sb.WriteString(l.Datatype.String())
	}
	return sb.String()
}

// Triple is an RDF triple.
type Triple struct {
	S Term
	P Term
	O Term
}

// String returns the triple as an N-Triples statement without a newline.
func (t Triple) String() string {
	return t.S.String() + " " + t.P.String() + " " + t.O.String() + " ."
}

// Quad is a triple in a graph. G is nil for quads read without a graph
// label; stores assign those to their default graph on load.
type Quad struct {
	S Term
	P Term
	O Term
	G Term
}

// Triple drops the graph component.
func (q Quad) Triple() Triple {
	return Triple{S: q.S, P: q.P, O: q.O}
}

// InGraph returns a copy of the triple placed in graph g.
func (t Triple) InGraph(g Term) Quad {
	return Quad{S: t.S, P: t.P, O: t.O, G: g}
}

// IsIRI reports whether t is an IRI.
func IsIRI(t Term) bool { return t != nil && t.Kind() == KindIRI }

// IsLiteral reports whether t is a literal.
func IsLiteral(t Term) bool { return t != nil && t.Kind() == KindLiteral }

// IsBlank reports whether t is a blank node.
func IsBlank(t Term) bool { return t != nil && t.Kind() == KindBlank }
