package engine

import (
	"context"
	"slices"
	"time"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
	"sparqld/internal/sparql"
	"sparqld/internal/store"
)

// ErrVersionNotComputable means the effective version of a query cannot be
// derived, so responses carry no Last-Modified header.
var ErrVersionNotComputable = errors.New("effective version not computable")

// EffectiveVersion returns the latest version among the graphs q can read
// in ds.
func EffectiveVersion(ctx context.Context, q *sparql.Query, st store.QuadStore, ds store.Dataset) (time.Time, error) {
	graphs, err := readGraphs(ctx, q, st, ds)
	if err != nil {
		return time.Time{}, err
	}
	if len(graphs) == 0 {
		return time.Time{}, errors.Wrap(ErrVersionNotComputable, "query reads no graphs")
	}

	var latest time.Time
	for _, g := range graphs {
		v, err := st.GraphVersion(ctx, g)
		if errors.Is(err, store.ErrNoVersion) {
			return time.Time{}, errors.Wrapf(ErrVersionNotComputable, "graph %s has no version", g)
		}
		if err != nil {
			return time.Time{}, errors.NewEvaluationFailure("Failed to read graph version", err)
		}
		if v.After(latest) {
			latest = v
		}
	}
	return latest, nil
}

// readGraphs collects the graphs a query depends on: the default graphs
// when any pattern reads the default graph, and the named graphs its GRAPH
// patterns can range over.
func readGraphs(ctx context.Context, q *sparql.Query, st store.QuadStore, ds store.Dataset) ([]rdf.IRI, error) {
	readsDefault := q.Form == sparql.FormDescribe
	readsAllNamed := false
	var names []rdf.IRI

	var visit func(g *sparql.Group, inGraph bool)
	visit = func(g *sparql.Group, inGraph bool) {
		if g == nil {
			return
		}
		for _, el := range g.Elements {
			switch p := el.(type) {
			case *sparql.BGP:
				if len(p.Triples) > 0 && !inGraph {
					readsDefault = true
				}
			case *sparql.Group:
				visit(p, inGraph)
			case *sparql.Optional:
				visit(p.Group, inGraph)
			case *sparql.Union:
				for _, alt := range p.Alternatives {
					visit(alt, inGraph)
				}
			case *sparql.GraphPattern:
				if p.Name.IsVar() {
					readsAllNamed = true
				} else if iri, ok := p.Name.Term.(rdf.IRI); ok {
					names = append(names, iri)
				}
				visit(p.Group, true)
			}
		}
	}
	visit(q.Where, false)

	ec := newEvalContext(ctx, st, ds)
	var graphs []rdf.IRI
	if readsDefault {
		graphs = append(graphs, ec.defaultGraphs...)
	}
	if readsAllNamed || len(names) > 0 {
		named, err := ec.named()
		if err != nil {
			return nil, err
		}
		for _, g := range named {
			if readsAllNamed || slices.Contains(names, g) {
				graphs = append(graphs, g)
			}
		}
	}
	return dedupe(graphs), nil
}
