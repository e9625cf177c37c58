package rdf

// Namespaces used across the endpoint.
const (
	NSRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSXSD     = "http://www.w3.org/2001/XMLSchema#"
	NSSD      = "http://www.w3.org/ns/sparql-service-description#"
	NSVoID    = "http://rdfs.org/ns/void#"
	NSSHACL   = "http://www.w3.org/ns/shacl#"
	NSFormats = "http://www.w3.org/ns/formats/"
)

// Well-known IRIs.
const (
	RDFType       IRI = NSRDF + "type"
	RDFLangString IRI = NSRDF + "langString"

	XSDString   IRI = NSXSD + "string"
	XSDBoolean  IRI = NSXSD + "boolean"
	XSDInteger  IRI = NSXSD + "integer"
	XSDDecimal  IRI = NSXSD + "decimal"
	XSDDouble   IRI = NSXSD + "double"
	XSDFloat    IRI = NSXSD + "float"
	XSDDateTime IRI = NSXSD + "dateTime"
	XSDAnyURI   IRI = NSXSD + "anyURI"
)

// DefaultGraph names the graph that holds data loaded without an explicit
// graph when a store has nothing else to offer as its default.
const DefaultGraph IRI = "tag:sparqld,2026:default-graph"

// IsNumericDatatype reports whether dt is one of the XSD numeric types the
// engine compares by value.
func IsNumericDatatype(dt IRI) bool {
	switch dt {
	case XSDInteger, XSDDecimal, XSDDouble, XSDFloat,
		NSXSD + "int", NSXSD + "long", NSXSD + "short", NSXSD + "byte",
		NSXSD + "nonNegativeInteger", NSXSD + "positiveInteger",
		NSXSD + "nonPositiveInteger", NSXSD + "negativeInteger",
		NSXSD + "unsignedInt", NSXSD + "unsignedLong":
		return true
	default:
		return false
	}
}
