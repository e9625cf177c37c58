package engine

import (
	"context"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
	"sparqld/internal/sparql"
	"sparqld/internal/store"
)

// Naive evaluates the algebra of a query bottom-up, materializing every
// intermediate solution sequence. It supports every parsed query shape and
// is the reference the planner is checked against.
type Naive struct{}

// NewNaive returns the naive evaluator.
func NewNaive() *Naive { return &Naive{} }

// Name implements Strategy.
func (*Naive) Name() string { return "naive" }

// Evaluate implements Strategy. It never declines; queries calling
// functions it cannot evaluate fail with EVALUATION_FAILURE.
func (n *Naive) Evaluate(ctx context.Context, q *sparql.Query, st store.QuadStore, ds store.Dataset) (Attempt, error) {
	if iri, ok := queryUnsupportedFunction(q); ok {
		return Attempt{}, errors.NewEvaluationFailure("Unsupported function "+iri.String(), nil)
	}

	ec := newEvalContext(ctx, st, ds)
	var solutions []Binding
	if q.Where != nil {
		var err error
		if solutions, err = n.evalGroup(ec, q.Where, defaultScope); err != nil {
			return Attempt{}, err
		}
	}

	res, err := buildResult(ec, q, sliceSource(solutions))
	if err != nil {
		return Attempt{}, err
	}
	return Accept(res), nil
}

func (n *Naive) evalGroup(ec *evalContext, g *sparql.Group, sc scope) ([]Binding, error) {
	solutions := []Binding{{}}
	var filters []sparql.Expr
	for _, el := range g.Elements {
		switch p := el.(type) {
		case *sparql.Filter:
			filters = append(filters, p.Expr)
		case *sparql.Optional:
			inner, conds := splitFilters(p.Group)
			right, err := n.evalGroup(ec, inner, sc)
			if err != nil {
				return nil, err
			}
			solutions = leftJoin(solutions, right, conds)
		default:
			right, err := n.evalPattern(ec, el, sc)
			if err != nil {
				return nil, err
			}
			solutions = join(solutions, right)
		}
	}
	return applyFilters(solutions, filters), nil
}

func (n *Naive) evalPattern(ec *evalContext, p sparql.Pattern, sc scope) ([]Binding, error) {
	switch p := p.(type) {
	case *sparql.BGP:
		solutions := []Binding{{}}
		for _, tp := range p.Triples {
			var next []Binding
			for _, b := range solutions {
				matches, err := ec.matchTriple(tp, sc, b)
				if err != nil {
					return nil, err
				}
				next = append(next, matches...)
			}
			solutions = next
		}
		return solutions, nil
	case *sparql.Group:
		return n.evalGroup(ec, p, sc)
	case *sparql.Union:
		var out []Binding
		for _, alt := range p.Alternatives {
			solutions, err := n.evalGroup(ec, alt, sc)
			if err != nil {
				return nil, err
			}
			out = append(out, solutions...)
		}
		return out, nil
	case *sparql.GraphPattern:
		return n.evalGraph(ec, p)
	}
	return nil, errors.NewEvaluationFailure("Unsupported pattern", nil)
}

func (n *Naive) evalGraph(ec *evalContext, p *sparql.GraphPattern) ([]Binding, error) {
	if !p.Name.IsVar() {
		ok, err := ec.isNamed(p.Name.Term)
		if err != nil || !ok {
			return nil, err
		}
		return n.evalGroup(ec, p.Group, scope{named: true, graph: p.Name})
	}

	graphs, err := ec.named()
	if err != nil {
		return nil, err
	}
	var out []Binding
	for _, g := range graphs {
		solutions, err := n.evalGroup(ec, p.Group, scope{named: true, graph: sparql.Constant(g)})
		if err != nil {
			return nil, err
		}
		for _, b := range solutions {
			if nb, ok := extend(b, p.Name, g); ok {
				out = append(out, nb)
			}
		}
	}
	return out, nil
}

// splitFilters separates the filters of an OPTIONAL group, which become
// the condition of the left join.
func splitFilters(g *sparql.Group) (*sparql.Group, []sparql.Expr) {
	inner := &sparql.Group{}
	var conds []sparql.Expr
	for _, el := range g.Elements {
		if f, ok := el.(*sparql.Filter); ok {
			conds = append(conds, f.Expr)
			continue
		}
		inner.Elements = append(inner.Elements, el)
	}
	return inner, conds
}

func compatible(a, b Binding) bool {
	for k, v := range a {
		if w, ok := b[k]; ok && w != v {
			return false
		}
	}
	return true
}

func merge(a, b Binding) Binding {
	out := make(Binding, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func join(left, right []Binding) []Binding {
	var out []Binding
	for _, a := range left {
		for _, b := range right {
			if compatible(a, b) {
				out = append(out, merge(a, b))
			}
		}
	}
	return out
}

func leftJoin(left, right []Binding, conds []sparql.Expr) []Binding {
	var out []Binding
	for _, a := range left {
		matched := false
		for _, b := range right {
			if !compatible(a, b) {
				continue
			}
			m := merge(a, b)
			if !allPass(conds, m) {
				continue
			}
			matched = true
			out = append(out, m)
		}
		if !matched {
			out = append(out, a)
		}
	}
	return out
}

func applyFilters(solutions []Binding, filters []sparql.Expr) []Binding {
	if len(filters) == 0 {
		return solutions
	}
	out := solutions[:0:0]
	for _, b := range solutions {
		if allPass(filters, b) {
			out = append(out, b)
		}
	}
	return out
}

func allPass(filters []sparql.Expr, b Binding) bool {
	for _, f := range filters {
		if !filterPasses(f, b) {
			return false
		}
	}
	return true
}

// queryUnsupportedFunction finds a function call in filters or ORDER BY
// that no strategy can evaluate.
func queryUnsupportedFunction(q *sparql.Query) (rdf.IRI, bool) {
	var found rdf.IRI
	sparql.Walk(q.Where, func(p sparql.Pattern) bool {
		if f, ok := p.(*sparql.Filter); ok && found == "" {
			if iri, ok := unsupportedFunction(f.Expr); ok {
				found = iri
			}
		}
		return found == ""
	})
	if found != "" {
		return found, true
	}
	for _, c := range q.OrderBy {
		if iri, ok := unsupportedFunction(c.Expr); ok {
			return iri, true
		}
	}
	return "", false
}
