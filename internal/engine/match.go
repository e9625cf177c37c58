package engine

import (
	"context"
	"slices"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
	"sparqld/internal/sparql"
	"sparqld/internal/store"
)

// scope is the active graph of a pattern: the merged default graph, or a
// named graph given by a constant or a variable.
type scope struct {
	named bool
	graph sparql.Node
}

var defaultScope = scope{}

// evalContext carries what both strategies need to match patterns.
type evalContext struct {
	ctx context.Context
	st  store.QuadStore
	ds  store.Dataset

	defaultGraphs []rdf.IRI
	namedGraphs   []rdf.IRI
	namedLoaded   bool
}

func newEvalContext(ctx context.Context, st store.QuadStore, ds store.Dataset) *evalContext {
	return &evalContext{ctx: ctx, st: st, ds: ds, defaultGraphs: dedupe(ds.DefaultGraphs)}
}

func dedupe(graphs []rdf.IRI) []rdf.IRI {
	out := make([]rdf.IRI, 0, len(graphs))
	for _, g := range graphs {
		if !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	return out
}

// named lists the graphs GRAPH patterns range over: the dataset's named
// graphs, or every store graph when the dataset names none.
func (ec *evalContext) named() ([]rdf.IRI, error) {
	if ec.namedLoaded {
		return ec.namedGraphs, nil
	}
	if len(ec.ds.NamedGraphs) > 0 {
		ec.namedGraphs = dedupe(ec.ds.NamedGraphs)
	} else {
		graphs, err := ec.st.Graphs(ec.ctx)
		if err != nil {
			return nil, errors.NewEvaluationFailure("Failed to list graphs", err)
		}
		ec.namedGraphs = graphs
	}
	ec.namedLoaded = true
	return ec.namedGraphs, nil
}

func (ec *evalContext) isNamed(g rdf.Term) (bool, error) {
	iri, ok := g.(rdf.IRI)
	if !ok {
		return false, nil
	}
	graphs, err := ec.named()
	if err != nil {
		return false, err
	}
	return slices.Contains(graphs, iri), nil
}

// bindNode substitutes b into n. The term is nil for an unbound variable.
func bindNode(n sparql.Node, b Binding) rdf.Term {
	if n.IsVar() {
		return b[n.Var]
	}
	return n.Term
}

// extend binds n to t in a copy of b. It fails when b already binds n to
// another term.
func extend(b Binding, n sparql.Node, t rdf.Term) (Binding, bool) {
	if !n.IsVar() {
		return b, n.Term == t
	}
	if cur, ok := b[n.Var]; ok {
		return b, cur == t
	}
	out := make(Binding, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[n.Var] = t
	return out, true
}

// matchTriple returns every extension of b that matches tp in the active
// graph sc.
func (ec *evalContext) matchTriple(tp sparql.TriplePattern, sc scope, b Binding) ([]Binding, error) {
	pattern := store.QuadPattern{
		S: bindNode(tp.S, b),
		P: bindNode(tp.P, b),
		O: bindNode(tp.O, b),
	}

	var out []Binding
	emit := func(q rdf.Quad, base Binding) {
		nb, ok := extend(base, tp.S, q.S)
		if !ok {
			return
		}
		if nb, ok = extend(nb, tp.P, q.P); !ok {
			return
		}
		if nb, ok = extend(nb, tp.O, q.O); !ok {
			return
		}
		out = append(out, nb)
	}

	if !sc.named {
		// the default graph is the RDF merge of the dataset's default graphs
		seen := make(map[rdf.Triple]bool)
		for _, g := range ec.defaultGraphs {
			pattern.G = g
			quads, err := ec.match(pattern)
			if err != nil {
				return nil, err
			}
			for _, q := range quads {
				t := q.Triple()
				if len(ec.defaultGraphs) > 1 {
					if seen[t] {
						continue
					}
					seen[t] = true
				}
				emit(q, b)
			}
		}
		return out, nil
	}

	if g := bindNode(sc.graph, b); g != nil {
		ok, err := ec.isNamed(g)
		if err != nil || !ok {
			return nil, err
		}
		pattern.G = g
		quads, err := ec.match(pattern)
		if err != nil {
			return nil, err
		}
		for _, q := range quads {
			emit(q, b)
		}
		return out, nil
	}

	graphs, err := ec.named()
	if err != nil {
		return nil, err
	}
	for _, g := range graphs {
		pattern.G = g
		quads, err := ec.match(pattern)
		if err != nil {
			return nil, err
		}
		if len(quads) == 0 {
			continue
		}
		withGraph, _ := extend(b, sc.graph, g)
		for _, q := range quads {
			emit(q, withGraph)
		}
	}
	return out, nil
}

func (ec *evalContext) match(p store.QuadPattern) ([]rdf.Quad, error) {
	quads, err := ec.st.Match(ec.ctx, p)
	if err != nil {
		return nil, errors.NewEvaluationFailure("Failed to match quads", err)
	}
	return quads, nil
}

// estimate returns the store's count for the constant part of tp.
func (ec *evalContext) estimate(tp sparql.TriplePattern, sc scope) (int64, error) {
	pattern := store.QuadPattern{S: tp.S.Term, P: tp.P.Term, O: tp.O.Term}
	if sc.named && !sc.graph.IsVar() {
		pattern.G = sc.graph.Term
	}
	n, err := ec.st.Count(ec.ctx, pattern)
	if err != nil {
		return 0, errors.NewEvaluationFailure("Failed to count quads", err)
	}
	return n, nil
}
