package sparql

import (
	"strconv"
	"strings"
)

// Projection returns the variables a SELECT produces, in order. For
// SELECT * these are the pattern's variables in first-seen order.
func (q *Query) Projection() []string {
	if q.Star || len(q.Variables) == 0 {
		return PatternVars(q.Where)
	}
	return q.Variables
}

// Serialize renders the query back to SPARQL text on one line, with IRIs
// written in full.
func (q *Query) Serialize() string {
	var sb strings.Builder
	if q.Base != "" {
		sb.WriteString("BASE " + q.Base.String() + " ")
	}

	sb.WriteString(q.Form.String())
	switch q.Form {
	case FormSelect:
		if q.Distinct {
			sb.WriteString(" DISTINCT")
		} else if q.Reduced {
			sb.WriteString(" REDUCED")
		}
		if q.Star {
			sb.WriteString(" *")
		}
		for _, v := range q.Variables {
			sb.WriteString(" ?" + v)
		}
	case FormConstruct:
		sb.WriteString(" {")
		for _, tp := range q.Template {
			sb.WriteString(" " + tripleString(tp) + " .")
		}
		sb.WriteString(" }")
	case FormDescribe:
		if q.Star {
			sb.WriteString(" *")
		}
		for _, n := range q.Describe {
			sb.WriteString(" " + nodeString(n))
		}
	}

	for _, g := range q.From {
		sb.WriteString(" FROM " + g.String())
	}
	for _, g := range q.FromNamed {
		sb.WriteString(" FROM NAMED " + g.String())
	}
	if q.Where != nil {
		sb.WriteString(" WHERE ")
		writeGroup(&sb, q.Where)
	}

	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY")
		for _, c := range q.OrderBy {
			if c.Desc {
				sb.WriteString(" DESC(" + ExprString(c.Expr) + ")")
			} else {
				sb.WriteString(" ASC(" + ExprString(c.Expr) + ")")
			}
		}
	}
	if q.Limit >= 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(q.Offset))
	}
	return sb.String()
}

func writeGroup(sb *strings.Builder, g *Group) {
	sb.WriteString("{")
	for _, el := range g.Elements {
		sb.WriteString(" ")
		switch p := el.(type) {
		case *Group:
			writeGroup(sb, p)
		case *BGP:
			for i, tp := range p.Triples {
				if i > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(tripleString(tp) + " .")
			}
		case *Optional:
			sb.WriteString("OPTIONAL ")
			writeGroup(sb, p.Group)
		case *Union:
			for i, alt := range p.Alternatives {
				if i > 0 {
					sb.WriteString(" UNION ")
				}
				writeGroup(sb, alt)
			}
		case *GraphPattern:
			sb.WriteString("GRAPH " + nodeString(p.Name) + " ")
			writeGroup(sb, p.Group)
		case *Filter:
			sb.WriteString("FILTER(" + ExprString(p.Expr) + ")")
		}
	}
	sb.WriteString(" }")
}

func tripleString(tp TriplePattern) string {
	return nodeString(tp.S) + " " + nodeString(tp.P) + " " + nodeString(tp.O)
}

func nodeString(n Node) string {
	if n.IsVar() {
		if IsBlankVar(n.Var) {
			return n.Var
		}
		return "?" + n.Var
	}
	return n.Term.String()
}

// ExprString renders an expression in SPARQL syntax, fully parenthesized.
func ExprString(e Expr) string {
	switch e := e.(type) {
	case *VarExpr:
		return "?" + e.Name
	case *TermExpr:
		return e.Term.String()
	case *BinaryExpr:
		return "(" + ExprString(e.Left) + " " + e.Op + " " + ExprString(e.Right) + ")"
	case *UnaryExpr:
		return e.Op + ExprString(e.Arg)
	case *CallExpr:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = ExprString(a)
		}
		name := e.Name
		if name == "" {
			name = e.Function.String()
		}
		return name + "(" + strings.Join(args, ", ") + ")"
	}
	return ""
}
