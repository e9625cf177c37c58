package results

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"sparqld/internal/engine"
	"sparqld/internal/rdf"
)

// TSVSerializer writes SPARQL 1.1 Query Results TSV. Terms use their
// N-Triples form; unbound variables leave an empty field.
type TSVSerializer struct{}

func (TSVSerializer) MediaType() string { return "text/tab-separated-values" }

func (s TSVSerializer) MediaTypes() []string { return []string{s.MediaType()} }

func (TSVSerializer) FormatIRI() rdf.IRI { return rdf.NSFormats + "SPARQL_Results_TSV" }

func (TSVSerializer) Supports(kind engine.ResultKind) bool { return kind == engine.ResultBindings }

func (TSVSerializer) Serialize(w io.Writer, res *engine.Result) error {
	bw := bufio.NewWriter(w)
	header := make([]string, len(res.Vars))
	for i, v := range res.Vars {
		header[i] = "?" + v
	}
	bw.WriteString(strings.Join(header, "\t"))
	bw.WriteByte('\n')

	fields := make([]string, len(res.Vars))
	for b := range res.Bindings() {
		for i, v := range res.Vars {
			fields[i] = ""
			if t, ok := b[v]; ok {
				fields[i] = t.String()
			}
		}
		bw.WriteString(strings.Join(fields, "\t"))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// CSVSerializer writes SPARQL 1.1 Query Results CSV. Only term values are
// written, so datatypes and language tags are lost.
type CSVSerializer struct{}

func (CSVSerializer) MediaType() string { return "text/csv" }

func (s CSVSerializer) MediaTypes() []string { return []string{s.MediaType()} }

func (CSVSerializer) FormatIRI() rdf.IRI { return rdf.NSFormats + "SPARQL_Results_CSV" }

func (CSVSerializer) Supports(kind engine.ResultKind) bool { return kind == engine.ResultBindings }

func (CSVSerializer) Serialize(w io.Writer, res *engine.Result) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(res.Vars); err != nil {
		return err
	}

	fields := make([]string, len(res.Vars))
	for b := range res.Bindings() {
		for i, v := range res.Vars {
			fields[i] = ""
			if t, ok := b[v]; ok {
				fields[i] = csvValue(t)
			}
		}
		if err := cw.Write(fields); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(t rdf.Term) string {
	if b, ok := t.(rdf.BlankNode); ok {
		return b.String()
	}
	return t.Value()
}
