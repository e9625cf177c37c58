package engine

import (
	"slices"
	"strings"

	"sparqld/internal/rdf"
	"sparqld/internal/sparql"
)

// orderRank places unbound values first, then blank nodes, IRIs and literals.
func orderRank(t rdf.Term) int {
	if t == nil {
		return 0
	}
	switch t.Kind() {
	case rdf.KindBlank:
		return 1
	case rdf.KindIRI:
		return 2
	default:
		return 3
	}
}

// compareTerms is the total order used by ORDER BY.
func compareTerms(a, b rdf.Term) int {
	ra, rb := orderRank(a), orderRank(b)
	if ra != rb {
		return ra - rb
	}
	if a == nil {
		return 0
	}
	la, aok := a.(rdf.Literal)
	lb, bok := b.(rdf.Literal)
	if !aok || !bok {
		return strings.Compare(a.Value(), b.Value())
	}
	if c, err := compareValues(la, lb); err == nil && c != 0 {
		return c
	}
	if c := strings.Compare(la.Lexical, lb.Lexical); c != 0 {
		return c
	}
	if c := strings.Compare(string(la.DatatypeIRI()), string(lb.DatatypeIRI())); c != 0 {
		return c
	}
	return strings.Compare(la.Lang, lb.Lang)
}

// orderSolutions sorts solutions in place by the ORDER BY conditions. The
// sort is stable so ties keep evaluation order.
func orderSolutions(solutions []Binding, conds []sparql.OrderCondition) {
	if len(conds) == 0 {
		return
	}
	slices.SortStableFunc(solutions, func(x, y Binding) int {
		for _, c := range conds {
			// errors sort as unbound
			vx, _ := evalExpr(c.Expr, x)
			vy, _ := evalExpr(c.Expr, y)
			cmp := compareTerms(vx, vy)
			if c.Desc {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp
			}
		}
		return 0
	})
}

// solutionKey identifies a solution restricted to vars, for DISTINCT.
func solutionKey(b Binding, vars []string) string {
	var sb strings.Builder
	for _, v := range vars {
		if t, ok := b[v]; ok {
			sb.WriteString(t.String())
		}
		sb.WriteByte(0)
	}
	return sb.String()
}

// project restricts a solution to vars.
func project(b Binding, vars []string) Binding {
	out := make(Binding, len(vars))
	for _, v := range vars {
		if t, ok := b[v]; ok {
			out[v] = t
		}
	}
	return out
}
