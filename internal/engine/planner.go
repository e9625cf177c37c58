package engine

import (
	"context"
	"math"

	"sparqld/internal/sparql"
	"sparqld/internal/store"
)

// Planner evaluates conjunctive queries: basic graph patterns, nested
// groups, GRAPH and FILTER. It orders triple patterns greedily by the
// store's cardinality estimates and streams solutions through a nested
// loop join. Anything else is declined before a solution is produced.
type Planner struct{}

// NewPlanner returns the cost-based planner.
func NewPlanner() *Planner { return &Planner{} }

// Name implements Strategy.
func (*Planner) Name() string { return "planner" }

// Evaluate implements Strategy.
func (p *Planner) Evaluate(ctx context.Context, q *sparql.Query, st store.QuadStore, ds store.Dataset) (Attempt, error) {
	if reason, ok := declineReason(q); ok {
		return Decline(reason), nil
	}

	ec := newEvalContext(ctx, st, ds)
	pl, err := buildPlan(ec, q.Where)
	if err != nil {
		return Attempt{}, err
	}
	res, err := buildResult(ec, q, pl.source(ec))
	if err != nil {
		return Attempt{}, err
	}
	return Accept(res), nil
}

// declineReason reports why the planner will not evaluate q.
func declineReason(q *sparql.Query) (string, bool) {
	if q.Form == sparql.FormDescribe {
		return "DESCRIBE is not planned", true
	}
	if q.Where == nil {
		return "query has no WHERE clause", true
	}
	if _, ok := queryUnsupportedFunction(q); ok {
		return "query calls an extension function", true
	}
	return groupDeclineReason(q.Where, true)
}

func groupDeclineReason(g *sparql.Group, top bool) (string, bool) {
	var bound map[string]bool
	for _, el := range g.Elements {
		switch p := el.(type) {
		case *sparql.Optional:
			return "OPTIONAL is not planned", true
		case *sparql.Union:
			return "UNION is not planned", true
		case *sparql.Group:
			if reason, ok := groupDeclineReason(p, false); ok {
				return reason, true
			}
		case *sparql.GraphPattern:
			if !hasTriples(p.Group) {
				return "GRAPH without triple patterns is not planned", true
			}
			if reason, ok := groupDeclineReason(p.Group, false); ok {
				return reason, true
			}
		case *sparql.Filter:
			// Filters of inner groups are moved into one join, which is only
			// equivalent when the group binds every variable they read.
			if top {
				continue
			}
			if bound == nil {
				bound = boundVars(g)
			}
			for _, v := range exprVars(p.Expr) {
				if !bound[v] {
					return "filter reads a variable bound outside its group", true
				}
			}
		}
	}
	return "", false
}

func hasTriples(g *sparql.Group) bool {
	found := false
	sparql.Walk(g, func(p sparql.Pattern) bool {
		if bgp, ok := p.(*sparql.BGP); ok && len(bgp.Triples) > 0 {
			found = true
		}
		return !found
	})
	return found
}

// boundVars lists the variables bound by the triples and GRAPH names
// inside g.
func boundVars(g *sparql.Group) map[string]bool {
	vars := make(map[string]bool)
	sparql.Walk(g, func(p sparql.Pattern) bool {
		switch p := p.(type) {
		case *sparql.BGP:
			for _, tp := range p.Triples {
				for _, v := range tp.Vars() {
					vars[v] = true
				}
			}
		case *sparql.GraphPattern:
			if p.Name.IsVar() {
				vars[p.Name.Var] = true
			}
		}
		return true
	})
	return vars
}

// step is one triple pattern in its active graph.
type step struct {
	tp sparql.TriplePattern
	sc scope
}

func (s step) vars() []string {
	vars := s.tp.Vars()
	if s.sc.named && s.sc.graph.IsVar() {
		vars = append(vars, s.sc.graph.Var)
	}
	return vars
}

// plan is an ordered join. filters[i+1] run after step i; filters[0] run
// before the first step and final after the last.
type plan struct {
	steps   []step
	filters [][]sparql.Expr
	final   []sparql.Expr
}

func buildPlan(ec *evalContext, where *sparql.Group) (*plan, error) {
	var steps []step
	var filters []sparql.Expr
	var flatten func(g *sparql.Group, sc scope)
	flatten = func(g *sparql.Group, sc scope) {
		for _, el := range g.Elements {
			switch p := el.(type) {
			case *sparql.BGP:
				for _, tp := range p.Triples {
					steps = append(steps, step{tp: tp, sc: sc})
				}
			case *sparql.Group:
				flatten(p, sc)
			case *sparql.GraphPattern:
				flatten(p.Group, scope{named: true, graph: p.Name})
			case *sparql.Filter:
				filters = append(filters, p.Expr)
			}
		}
	}
	flatten(where, defaultScope)

	ordered, err := orderSteps(ec, steps)
	if err != nil {
		return nil, err
	}

	pl := &plan{steps: ordered, filters: make([][]sparql.Expr, len(ordered)+1)}
	for _, f := range filters {
		at, ok := filterPosition(ordered, exprVars(f))
		if !ok {
			pl.final = append(pl.final, f)
			continue
		}
		pl.filters[at] = append(pl.filters[at], f)
	}
	return pl, nil
}

// orderSteps picks, at each position, the cheapest remaining step given
// the variables bound so far. Steps sharing no variable with the bound set
// are penalized to avoid cross products.
func orderSteps(ec *evalContext, steps []step) ([]step, error) {
	estimates := make([]float64, len(steps))
	for i, s := range steps {
		n, err := ec.estimate(s.tp, s.sc)
		if err != nil {
			return nil, err
		}
		estimates[i] = float64(n)
	}

	bound := make(map[string]bool)
	used := make([]bool, len(steps))
	ordered := make([]step, 0, len(steps))
	for len(ordered) < len(steps) {
		best, bestCost := -1, math.Inf(1)
		for i, s := range steps {
			if used[i] {
				continue
			}
			vars := s.vars()
			shared := 0
			for _, v := range vars {
				if bound[v] {
					shared++
				}
			}
			cost := estimates[i] / math.Pow(100, float64(shared))
			if len(bound) > 0 && shared == 0 && len(vars) > 0 {
				cost = cost*1e6 + 1
			}
			if cost < bestCost {
				best, bestCost = i, cost
			}
		}
		used[best] = true
		ordered = append(ordered, steps[best])
		for _, v := range steps[best].vars() {
			bound[v] = true
		}
	}
	return ordered, nil
}

// filterPosition is the earliest point at which every variable of a filter
// is bound.
func filterPosition(steps []step, vars []string) (int, bool) {
	need := make(map[string]bool)
	for _, v := range vars {
		need[v] = true
	}
	if len(need) == 0 {
		return 0, true
	}
	for i, s := range steps {
		for _, v := range s.vars() {
			delete(need, v)
		}
		if len(need) == 0 {
			return i + 1, true
		}
	}
	return 0, false
}

func (pl *plan) source(ec *evalContext) solutionSource {
	return func(yield func(Binding) bool) error {
		var run func(i int, b Binding) (bool, error)
		run = func(i int, b Binding) (bool, error) {
			if !allPass(pl.filters[i], b) {
				return true, nil
			}
			if i == len(pl.steps) {
				if !allPass(pl.final, b) {
					return true, nil
				}
				return yield(b), nil
			}
			matches, err := ec.matchTriple(pl.steps[i].tp, pl.steps[i].sc, b)
			if err != nil {
				return false, err
			}
			for _, m := range matches {
				more, err := run(i+1, m)
				if err != nil || !more {
					return more, err
				}
			}
			return true, nil
		}
		_, err := run(0, Binding{})
		return err
	}
}
