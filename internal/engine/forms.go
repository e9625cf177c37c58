package engine

import (
	"fmt"

	"sparqld/internal/rdf"
	"sparqld/internal/sparql"
	"sparqld/internal/store"
)

// solutionSource produces solutions until yield returns false.
type solutionSource func(yield func(Binding) bool) error

func sliceSource(solutions []Binding) solutionSource {
	return func(yield func(Binding) bool) error {
		for _, b := range solutions {
			if !yield(b) {
				return nil
			}
		}
		return nil
	}
}

// buildResult shapes solutions into the result of the query form.
// Boolean results and DESCRIBE targets are computed eagerly; everything
// else streams from src when the result is consumed.
func buildResult(ec *evalContext, q *sparql.Query, src solutionSource) (*Result, error) {
	switch q.Form {
	case sparql.FormAsk:
		found := false
		err := src(func(Binding) bool {
			found = true
			return false
		})
		if err != nil {
			return nil, err
		}
		return BooleanResult(found), nil
	case sparql.FormConstruct:
		return TriplesResult(constructProducer(q, applyModifiers(q, nil, src))), nil
	case sparql.FormDescribe:
		return describe(ec, q, src)
	default:
		vars := q.Projection()
		mod := applyModifiers(q, vars, src)
		return BindingsResult(vars, func(yield func(Binding) bool) error {
			return mod(yield)
		}), nil
	}
}

// applyModifiers applies ORDER BY, projection, DISTINCT/REDUCED, OFFSET and
// LIMIT in that order. A nil vars skips projection and duplicate removal.
func applyModifiers(q *sparql.Query, vars []string, src solutionSource) solutionSource {
	return func(yield func(Binding) bool) error {
		seq := src
		if len(q.OrderBy) > 0 {
			var all []Binding
			if err := src(func(b Binding) bool {
				all = append(all, b)
				return true
			}); err != nil {
				return err
			}
			orderSolutions(all, q.OrderBy)
			seq = sliceSource(all)
		}

		distinct := vars != nil && (q.Distinct || q.Reduced)
		seen := make(map[string]bool)
		skipped, emitted := 0, 0
		if q.Limit == 0 {
			return nil
		}
		return seq(func(b Binding) bool {
			if vars != nil {
				b = project(b, vars)
			}
			if distinct {
				key := solutionKey(b, vars)
				if seen[key] {
					return true
				}
				seen[key] = true
			}
			if skipped < q.Offset {
				skipped++
				return true
			}
			emitted++
			if !yield(b) {
				return false
			}
			return q.Limit < 0 || emitted < q.Limit
		})
	}
}

// constructProducer instantiates the template once per solution. Blank
// nodes in the template are fresh for every solution; triples with unbound
// or ill-placed terms are skipped and duplicates are dropped.
func constructProducer(q *sparql.Query, src solutionSource) func(yield func(rdf.Triple) bool) error {
	return func(yield func(rdf.Triple) bool) error {
		seen := make(map[rdf.Triple]bool)
		n := 0
		stopped := false
		err := src(func(b Binding) bool {
			n++
			for _, tp := range q.Template {
				t, ok := instantiate(tp, b, n)
				if !ok || seen[t] {
					continue
				}
				seen[t] = true
				if !yield(t) {
					stopped = true
					return false
				}
			}
			return true
		})
		if stopped {
			return nil
		}
		return err
	}
}

func instantiate(tp sparql.TriplePattern, b Binding, n int) (rdf.Triple, bool) {
	term := func(node sparql.Node) rdf.Term {
		if bn, ok := node.Term.(rdf.BlankNode); ok {
			return rdf.BlankNode(fmt.Sprintf("c%d_%s", n, string(bn)))
		}
		return bindNode(node, b)
	}
	s, p, o := term(tp.S), term(tp.P), term(tp.O)
	if s == nil || p == nil || o == nil {
		return rdf.Triple{}, false
	}
	if rdf.IsLiteral(s) || !rdf.IsIRI(p) {
		return rdf.Triple{}, false
	}
	return rdf.Triple{S: s, P: p, O: o}, true
}

// describe returns the triples in the default graph whose subject is one
// of the described resources.
func describe(ec *evalContext, q *sparql.Query, src solutionSource) (*Result, error) {
	var resources []rdf.Term
	seen := make(map[rdf.Term]bool)
	add := func(t rdf.Term) {
		if t != nil && !rdf.IsLiteral(t) && !seen[t] {
			seen[t] = true
			resources = append(resources, t)
		}
	}

	targets := q.Describe
	if q.Star {
		for _, v := range q.Projection() {
			targets = append(targets, sparql.Variable(v))
		}
	}
	for _, n := range targets {
		if !n.IsVar() {
			add(n.Term)
		}
	}
	if q.Where != nil {
		err := applyModifiers(q, nil, src)(func(b Binding) bool {
			for _, n := range targets {
				if n.IsVar() {
					add(b[n.Var])
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	return TriplesResult(func(yield func(rdf.Triple) bool) error {
		emitted := make(map[rdf.Triple]bool)
		for _, r := range resources {
			for _, g := range ec.defaultGraphs {
				quads, err := ec.match(store.QuadPattern{S: r, G: g})
				if err != nil {
					return err
				}
				for _, quad := range quads {
					t := quad.Triple()
					if emitted[t] {
						continue
					}
					emitted[t] = true
					if !yield(t) {
						return nil
					}
				}
			}
		}
		return nil
	}), nil
}
