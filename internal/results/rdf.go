package results

import (
	"bufio"
	"io"

	"sparqld/internal/engine"
	"sparqld/internal/rdf"
)

// NTriplesSerializer writes CONSTRUCT and DESCRIBE results as N-Triples,
// one triple per line in engine order.
type NTriplesSerializer struct{}

func (NTriplesSerializer) MediaType() string { return "application/n-triples" }

func (s NTriplesSerializer) MediaTypes() []string { return []string{s.MediaType(), "text/plain"} }

func (NTriplesSerializer) FormatIRI() rdf.IRI { return rdf.NSFormats + "N-Triples" }

func (NTriplesSerializer) Supports(kind engine.ResultKind) bool { return kind == engine.ResultTriples }

func (NTriplesSerializer) Serialize(w io.Writer, res *engine.Result) error {
	bw := bufio.NewWriter(w)
	for t := range res.Triples() {
		bw.WriteString(t.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// TurtleSerializer writes triples as Turtle, folding runs of triples that
// share a subject into predicate lists. Triples are not reordered.
type TurtleSerializer struct{}

func (TurtleSerializer) MediaType() string { return "text/turtle" }

func (s TurtleSerializer) MediaTypes() []string {
	return []string{s.MediaType(), "application/x-turtle"}
}

func (TurtleSerializer) FormatIRI() rdf.IRI { return rdf.NSFormats + "Turtle" }

func (TurtleSerializer) Supports(kind engine.ResultKind) bool { return kind == engine.ResultTriples }

func (TurtleSerializer) Serialize(w io.Writer, res *engine.Result) error {
	bw := bufio.NewWriter(w)
	var subject rdf.Term
	for t := range res.Triples() {
		if subject != nil && subject == t.S {
			bw.WriteString(" ;\n    ")
		} else {
			if subject != nil {
				bw.WriteString(" .\n")
			}
			subject = t.S
			bw.WriteString(t.S.String())
			bw.WriteByte(' ')
		}
		bw.WriteString(predicateString(t.P))
		bw.WriteByte(' ')
		bw.WriteString(t.O.String())
	}
	if subject != nil {
		bw.WriteString(" .\n")
	}
	return bw.Flush()
}

func predicateString(p rdf.Term) string {
	if p == rdf.RDFType {
		return "a"
	}
	return p.String()
}
