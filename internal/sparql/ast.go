// Package sparql parses the subset of SPARQL 1.1 Query the engine evaluates.
package sparql

import (
	"sparqld/internal/rdf"
)

// QueryForm is the kind of result a query produces.
type QueryForm int

const (
	FormSelect QueryForm = iota
	FormAsk
	FormConstruct
	FormDescribe
)

func (f QueryForm) String() string {
	switch f {
	case FormSelect:
		return "SELECT"
	case FormAsk:
		return "ASK"
	case FormConstruct:
		return "CONSTRUCT"
	case FormDescribe:
		return "DESCRIBE"
	default:
		return "UNKNOWN"
	}
}

// Prefix is a PREFIX declaration.
type Prefix struct {
	Name string
	IRI  rdf.IRI
}

// Query is a parsed query.
type Query struct {
	Form     QueryForm
	Base     rdf.IRI
	Prefixes []Prefix

	Distinct bool
	Reduced  bool
	// Variables lists projected names without '?'. Star is set for SELECT *
	// and DESCRIBE *.
	Variables []string
	Star      bool

	// Template is the CONSTRUCT template.
	Template []TriplePattern
	// Describe lists DESCRIBE targets.
	Describe []Node

	From      []rdf.IRI
	FromNamed []rdf.IRI

	// Where is nil only for DESCRIBE without a WHERE clause.
	Where *Group

	OrderBy []OrderCondition
	// Limit is -1 when absent.
	Limit  int
	Offset int
}

// Node is a variable or a constant term in a pattern.
type Node struct {
	Var  string
	Term rdf.Term
}

// Variable returns a variable node.
func Variable(name string) Node { return Node{Var: name} }

// Constant returns a constant node.
func Constant(t rdf.Term) Node { return Node{Term: t} }

// IsVar reports whether n is a variable.
func (n Node) IsVar() bool { return n.Var != "" }

// TriplePattern is a triple whose positions may be variables. Blank nodes
// in WHERE clauses are parsed as variables named "_:label".
type TriplePattern struct {
	S, P, O Node
}

// Vars lists the variables of the pattern in S, P, O order.
func (tp TriplePattern) Vars() []string {
	var vars []string
	for _, n := range []Node{tp.S, tp.P, tp.O} {
		if n.IsVar() {
			vars = append(vars, n.Var)
		}
	}
	return vars
}

// Pattern is an element of a group graph pattern.
type Pattern interface {
	pattern()
}

// Group is a group graph pattern: elements joined in order, with filters
// scoped over the whole group.
type Group struct {
	Elements []Pattern
}

// BGP is a basic graph pattern.
type BGP struct {
	Triples []TriplePattern
}

// Optional is an OPTIONAL block.
type Optional struct {
	Group *Group
}

// Union joins alternatives; two or more.
type Union struct {
	Alternatives []*Group
}

// GraphPattern scopes a group to a named graph.
type GraphPattern struct {
	Name  Node
	Group *Group
}

// Filter is a FILTER constraint.
type Filter struct {
	Expr Expr
}

func (*Group) pattern()        {}
func (*BGP) pattern()          {}
func (*Optional) pattern()     {}
func (*Union) pattern()        {}
func (*GraphPattern) pattern() {}
func (*Filter) pattern()       {}

// Expr is a filter or ORDER BY expression.
type Expr interface {
	expr()
}

// VarExpr references a variable.
type VarExpr struct {
	Name string
}

// TermExpr is a constant.
type TermExpr struct {
	Term rdf.Term
}

// BinaryExpr applies an operator: || && = != < > <= >= + - * /
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

// UnaryExpr applies ! or unary - / +.
type UnaryExpr struct {
	Op  string
	Arg Expr
}

// CallExpr is a built-in call (upper-case Name) or a function named by IRI.
type CallExpr struct {
	Name     string
	Function rdf.IRI
	Args     []Expr
}

func (*VarExpr) expr()    {}
func (*TermExpr) expr()   {}
func (*BinaryExpr) expr() {}
func (*UnaryExpr) expr()  {}
func (*CallExpr) expr()   {}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr Expr
	Desc bool
}

// Walk visits every pattern in g depth first, stopping when visit returns false.
func Walk(g *Group, visit func(Pattern) bool) {
	if g == nil {
		return
	}
	for _, el := range g.Elements {
		if !visit(el) {
			continue
		}
		switch p := el.(type) {
		case *Group:
			Walk(p, visit)
		case *Optional:
			Walk(p.Group, visit)
		case *Union:
			for _, alt := range p.Alternatives {
				Walk(alt, visit)
			}
		case *GraphPattern:
			Walk(p.Group, visit)
		}
	}
}

// PatternVars lists the variables a group can bind, in first-seen order.
func PatternVars(g *Group) []string {
	var vars []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] && !IsBlankVar(name) {
			seen[name] = true
			vars = append(vars, name)
		}
	}
	Walk(g, func(p Pattern) bool {
		switch p := p.(type) {
		case *BGP:
			for _, tp := range p.Triples {
				for _, v := range tp.Vars() {
					add(v)
				}
			}
		case *GraphPattern:
			add(p.Name.Var)
		}
		return true
	})
	return vars
}

// IsBlankVar reports whether a variable name stands for a query blank node.
func IsBlankVar(name string) bool {
	return len(name) > 2 && name[0] == '_' && name[1] == ':'
}
