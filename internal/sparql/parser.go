package sparql

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sparqld/internal/rdf"
)

// builtins maps upper-cased built-in names to their arity range.
var builtins = map[string][2]int{
	"BOUND":       {1, 1},
	"ISIRI":       {1, 1},
	"ISURI":       {1, 1},
	"ISLITERAL":   {1, 1},
	"ISBLANK":     {1, 1},
	"LANG":        {1, 1},
	"LANGMATCHES": {2, 2},
	"STR":         {1, 1},
	"REGEX":       {2, 3},
	"DATATYPE":    {1, 1},
	"SAMETERM":    {2, 2},
}

// Parse parses query text. Failures are returned as *SyntaxError.
func Parse(text string) (*Query, error) {
	toks, err := newLexer(text).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{
		toks:     toks,
		prefixes: make(map[string]rdf.IRI),
		q:        &Query{Limit: -1},
	}
	if err := p.parseQuery(); err != nil {
		return nil, err
	}
	return p.q, nil
}

type parser struct {
	toks     []token
	pos      int
	base     *url.URL
	prefixes map[string]rdf.IRI
	q        *Query
	// inTemplate keeps blank nodes as constants inside CONSTRUCT templates.
	inTemplate bool
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return &SyntaxError{Line: t.line, Column: t.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokKeyword && t.text == word
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) acceptKeyword(word string) bool {
	if p.isKeyword(word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptPunct(s string) bool {
	if p.isPunct(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) error {
	if !p.acceptPunct(s) {
		return p.errorf(p.peek(), "expected %q, found %s", s, p.peek())
	}
	return nil
}

func (p *parser) parseQuery() error {
	if err := p.parsePrologue(); err != nil {
		return err
	}

	t := p.next()
	if t.kind != tokKeyword {
		return p.errorf(t, "expected query form, found %s", t)
	}
	var err error
	switch t.text {
	case "SELECT":
		err = p.parseSelect()
	case "ASK":
		p.q.Form = FormAsk
		err = p.parseBody(true)
	case "CONSTRUCT":
		err = p.parseConstruct()
	case "DESCRIBE":
		err = p.parseDescribe()
	default:
		return p.errorf(t, "expected query form, found %s", t)
	}
	if err != nil {
		return err
	}

	if t := p.peek(); t.kind != tokEOF {
		return p.errorf(t, "unexpected %s after query", t)
	}
	return nil
}

func (p *parser) parsePrologue() error {
	for {
		switch {
		case p.acceptKeyword("BASE"):
			t := p.next()
			if t.kind != tokIRI {
				return p.errorf(t, "expected IRI after BASE, found %s", t)
			}
			iri, err := p.resolve(t)
			if err != nil {
				return err
			}
			base, err := url.Parse(string(iri))
			if err != nil {
				return p.errorf(t, "invalid base IRI: %v", err)
			}
			p.base = base
			p.q.Base = iri
		case p.acceptKeyword("PREFIX"):
			name := p.next()
			if name.kind != tokPName || !strings.HasSuffix(name.text, ":") || strings.Count(name.text, ":") != 1 {
				return p.errorf(name, "expected prefix name, found %s", name)
			}
			t := p.next()
			if t.kind != tokIRI {
				return p.errorf(t, "expected IRI after PREFIX %s, found %s", name.text, t)
			}
			iri, err := p.resolve(t)
			if err != nil {
				return err
			}
			prefix := strings.TrimSuffix(name.text, ":")
			p.prefixes[prefix] = iri
			p.q.Prefixes = append(p.q.Prefixes, Prefix{Name: prefix, IRI: iri})
		default:
			return nil
		}
	}
}

func (p *parser) parseSelect() error {
	p.q.Form = FormSelect
	switch {
	case p.acceptKeyword("DISTINCT"):
		p.q.Distinct = true
	case p.acceptKeyword("REDUCED"):
		p.q.Reduced = true
	}
	if p.acceptPunct("*") {
		p.q.Star = true
	} else {
		for p.peek().kind == tokVar {
			p.q.Variables = append(p.q.Variables, p.next().text)
		}
		if len(p.q.Variables) == 0 {
			return p.errorf(p.peek(), "expected variables or '*' after SELECT, found %s", p.peek())
		}
	}
	return p.parseBody(true)
}

func (p *parser) parseConstruct() error {
	p.q.Form = FormConstruct
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	p.inTemplate = true
	var template []TriplePattern
	for !p.isPunct("}") {
		triples, err := p.parseTriplesSameSubject()
		if err != nil {
			return err
		}
		template = append(template, triples...)
		if !p.acceptPunct(".") {
			break
		}
	}
	p.inTemplate = false
	if err := p.expectPunct("}"); err != nil {
		return err
	}
	p.q.Template = template
	return p.parseBody(true)
}

func (p *parser) parseDescribe() error {
	p.q.Form = FormDescribe
	if p.acceptPunct("*") {
		p.q.Star = true
	} else {
		for {
			t := p.peek()
			if t.kind != tokVar && t.kind != tokIRI && t.kind != tokPName {
				break
			}
			n, err := p.parseVarOrIRI()
			if err != nil {
				return err
			}
			p.q.Describe = append(p.q.Describe, n)
		}
		if len(p.q.Describe) == 0 {
			return p.errorf(p.peek(), "expected resources or '*' after DESCRIBE, found %s", p.peek())
		}
	}
	return p.parseBody(false)
}

// parseBody reads dataset clauses, the WHERE clause and solution modifiers.
func (p *parser) parseBody(whereRequired bool) error {
	for p.acceptKeyword("FROM") {
		named := p.acceptKeyword("NAMED")
		t := p.next()
		var iri rdf.IRI
		var err error
		switch t.kind {
		case tokIRI:
			iri, err = p.resolve(t)
		case tokPName:
			iri, err = p.expand(t)
		default:
			return p.errorf(t, "expected graph IRI after FROM, found %s", t)
		}
		if err != nil {
			return err
		}
		if named {
			p.q.FromNamed = append(p.q.FromNamed, iri)
		} else {
			p.q.From = append(p.q.From, iri)
		}
	}

	hasWhere := p.acceptKeyword("WHERE")
	if hasWhere || p.isPunct("{") || whereRequired {
		g, err := p.parseGroup()
		if err != nil {
			return err
		}
		p.q.Where = g
	}
	return p.parseModifiers()
}

func (p *parser) parseModifiers() error {
	if p.acceptKeyword("ORDER") {
		if !p.acceptKeyword("BY") {
			return p.errorf(p.peek(), "expected BY after ORDER, found %s", p.peek())
		}
		for {
			cond, ok, err := p.parseOrderCondition()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			p.q.OrderBy = append(p.q.OrderBy, cond)
		}
		if len(p.q.OrderBy) == 0 {
			return p.errorf(p.peek(), "expected ORDER BY condition, found %s", p.peek())
		}
	}

	seenLimit, seenOffset := false, false
	for {
		switch {
		case !seenLimit && p.acceptKeyword("LIMIT"):
			n, err := p.parseNonNegative("LIMIT")
			if err != nil {
				return err
			}
			p.q.Limit, seenLimit = n, true
		case !seenOffset && p.acceptKeyword("OFFSET"):
			n, err := p.parseNonNegative("OFFSET")
			if err != nil {
				return err
			}
			p.q.Offset, seenOffset = n, true
		default:
			return nil
		}
	}
}

func (p *parser) parseNonNegative(clause string) (int, error) {
	t := p.next()
	if t.kind != tokInteger {
		return 0, p.errorf(t, "expected integer after %s, found %s", clause, t)
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.errorf(t, "invalid %s value %s", clause, t.text)
	}
	return n, nil
}

func (p *parser) parseOrderCondition() (OrderCondition, bool, error) {
	t := p.peek()
	switch {
	case t.kind == tokKeyword && (t.text == "ASC" || t.text == "DESC"):
		p.pos++
		if err := p.expectPunct("("); err != nil {
			return OrderCondition{}, false, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return OrderCondition{}, false, err
		}
		if err := p.expectPunct(")"); err != nil {
			return OrderCondition{}, false, err
		}
		return OrderCondition{Expr: e, Desc: t.text == "DESC"}, true, nil
	case t.kind == tokVar:
		p.pos++
		return OrderCondition{Expr: &VarExpr{Name: t.text}}, true, nil
	case t.kind == tokPunct && t.text == "(":
		p.pos++
		e, err := p.parseExpr()
		if err != nil {
			return OrderCondition{}, false, err
		}
		if err := p.expectPunct(")"); err != nil {
			return OrderCondition{}, false, err
		}
		return OrderCondition{Expr: e}, true, nil
	case t.kind == tokKeyword && isBuiltin(t.text):
		e, err := p.parseBuiltin()
		if err != nil {
			return OrderCondition{}, false, err
		}
		return OrderCondition{Expr: e}, true, nil
	}
	return OrderCondition{}, false, nil
}

// parseGroup reads '{' ... '}'. Consecutive triples form one BGP; every
// other element closes the current BGP.
func (p *parser) parseGroup() (*Group, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	g := &Group{}
	var bgp *BGP
	flush := func() {
		if bgp != nil {
			g.Elements = append(g.Elements, bgp)
			bgp = nil
		}
	}

	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return nil, p.errorf(t, "unterminated group pattern")
		case t.kind == tokPunct && t.text == "}":
			p.pos++
			flush()
			return g, nil
		case t.kind == tokPunct && t.text == ".":
			p.pos++
		case t.kind == tokKeyword && t.text == "OPTIONAL":
			p.pos++
			flush()
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Optional{Group: inner})
		case t.kind == tokKeyword && t.text == "GRAPH":
			p.pos++
			flush()
			name, err := p.parseVarOrIRI()
			if err != nil {
				return nil, err
			}
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &GraphPattern{Name: name, Group: inner})
		case t.kind == tokKeyword && t.text == "FILTER":
			p.pos++
			flush()
			e, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Filter{Expr: e})
		case t.kind == tokPunct && t.text == "{":
			flush()
			el, err := p.parseGroupOrUnion()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, el)
		default:
			triples, err := p.parseTriplesSameSubject()
			if err != nil {
				return nil, err
			}
			if bgp == nil {
				bgp = &BGP{}
			}
			bgp.Triples = append(bgp.Triples, triples...)
			if !p.isPunct(".") && !p.isPunct("}") {
				// a triples block continues only after '.'
				if next := p.peek(); next.kind != tokKeyword && !(next.kind == tokPunct && next.text == "{") {
					return nil, p.errorf(next, "expected '.' or '}', found %s", next)
				}
			}
		}
	}
}

func (p *parser) parseGroupOrUnion() (Pattern, error) {
	first, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("UNION") {
		return first, nil
	}
	u := &Union{Alternatives: []*Group{first}}
	for p.acceptKeyword("UNION") {
		alt, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		u.Alternatives = append(u.Alternatives, alt)
	}
	return u, nil
}

func (p *parser) parseTriplesSameSubject() ([]TriplePattern, error) {
	subject, err := p.parseTermNode(false)
	if err != nil {
		return nil, err
	}
	var triples []TriplePattern
	for {
		verb, err := p.parseVerb()
		if err != nil {
			return nil, err
		}
		for {
			object, err := p.parseTermNode(true)
			if err != nil {
				return nil, err
			}
			triples = append(triples, TriplePattern{S: subject, P: verb, O: object})
			if !p.acceptPunct(",") {
				break
			}
		}
		if !p.acceptPunct(";") {
			return triples, nil
		}
		// a trailing ';' may end the property list
		for p.acceptPunct(";") {
		}
		if p.isPunct(".") || p.isPunct("}") {
			return triples, nil
		}
	}
}

func (p *parser) parseVerb() (Node, error) {
	if p.acceptKeyword("a") {
		return Constant(rdf.RDFType), nil
	}
	return p.parseVarOrIRI()
}

func (p *parser) parseVarOrIRI() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokVar:
		return Variable(t.text), nil
	case tokIRI:
		iri, err := p.resolve(t)
		return Constant(iri), err
	case tokPName:
		iri, err := p.expand(t)
		return Constant(iri), err
	}
	return Node{}, p.errorf(t, "expected variable or IRI, found %s", t)
}

// parseTermNode reads a subject or object. Literals are only allowed in
// object position.
func (p *parser) parseTermNode(object bool) (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokVar, tokIRI, tokPName:
		return p.parseVarOrIRI()
	case tokBlank:
		p.pos++
		if p.inTemplate {
			return Constant(rdf.BlankNode(t.text)), nil
		}
		return Variable("_:" + t.text), nil
	}
	if !object {
		return Node{}, p.errorf(t, "expected subject, found %s", t)
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return Node{}, err
	}
	return Constant(lit), nil
}

// parseLiteral reads a string, numeric or boolean literal.
func (p *parser) parseLiteral() (rdf.Literal, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		switch next := p.peek(); {
		case next.kind == tokLangTag:
			p.pos++
			return rdf.NewLangLiteral(t.text, next.text), nil
		case next.kind == tokPunct && next.text == "^^":
			p.pos++
			dt := p.next()
			var iri rdf.IRI
			var err error
			switch dt.kind {
			case tokIRI:
				iri, err = p.resolve(dt)
			case tokPName:
				iri, err = p.expand(dt)
			default:
				return rdf.Literal{}, p.errorf(dt, "expected datatype IRI, found %s", dt)
			}
			if err != nil {
				return rdf.Literal{}, err
			}
			return rdf.NewTypedLiteral(t.text, iri), nil
		}
		return rdf.NewLiteral(t.text), nil
	case tokInteger:
		return rdf.NewTypedLiteral(t.text, rdf.XSDInteger), nil
	case tokDecimal:
		return rdf.NewTypedLiteral(t.text, rdf.XSDDecimal), nil
	case tokDouble:
		return rdf.NewTypedLiteral(t.text, rdf.XSDDouble), nil
	case tokKeyword:
		if t.text == "TRUE" || t.text == "FALSE" {
			return rdf.NewTypedLiteral(strings.ToLower(t.text), rdf.XSDBoolean), nil
		}
	case tokPunct:
		if t.text == "-" || t.text == "+" {
			num := p.peek()
			if num.kind == tokInteger || num.kind == tokDecimal || num.kind == tokDouble {
				lit, err := p.parseLiteral()
				if t.text == "-" {
					lit.Lexical = "-" + lit.Lexical
				}
				return lit, err
			}
		}
	}
	return rdf.Literal{}, p.errorf(t, "expected RDF term, found %s", t)
}

// parseConstraint reads the argument of FILTER.
func (p *parser) parseConstraint() (Expr, error) {
	t := p.peek()
	switch {
	case t.kind == tokPunct && t.text == "(":
		p.pos++
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return e, p.expectPunct(")")
	case t.kind == tokKeyword && isBuiltin(t.text):
		return p.parseBuiltin()
	case t.kind == tokIRI || t.kind == tokPName:
		return p.parseIRIOrFunction()
	}
	return nil, p.errorf(t, "expected constraint after FILTER, found %s", t)
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("&&") {
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseRelational() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind == tokPunct {
		switch t.text {
		case "=", "!=", "<", ">", "<=", ">=":
			p.pos++
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &BinaryExpr{Op: t.text, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPunct || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: t.text, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPunct || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: t.text, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if t.kind == tokPunct && (t.text == "!" || t.text == "-" || t.text == "+") {
		p.pos++
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: t.text, Arg: arg}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokPunct:
		if t.text == "(" {
			p.pos++
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return e, p.expectPunct(")")
		}
	case tokVar:
		p.pos++
		return &VarExpr{Name: t.text}, nil
	case tokIRI, tokPName:
		return p.parseIRIOrFunction()
	case tokKeyword:
		if isBuiltin(t.text) {
			return p.parseBuiltin()
		}
		if t.text == "TRUE" || t.text == "FALSE" {
			lit, err := p.parseLiteral()
			return &TermExpr{Term: lit}, err
		}
	case tokString, tokInteger, tokDecimal, tokDouble:
		lit, err := p.parseLiteral()
		return &TermExpr{Term: lit}, err
	}
	return nil, p.errorf(t, "expected expression, found %s", t)
}

func (p *parser) parseBuiltin() (Expr, error) {
	t := p.next()
	name := t.text
	if name == "ISURI" {
		name = "ISIRI"
	}
	arity := builtins[t.text]
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if len(args) < arity[0] || len(args) > arity[1] {
		return nil, p.errorf(t, "%s expects %d argument(s), got %d", t.text, arity[0], len(args))
	}
	if name == "BOUND" {
		if _, ok := args[0].(*VarExpr); !ok {
			return nil, p.errorf(t, "BOUND expects a variable")
		}
	}
	return &CallExpr{Name: name, Args: args}, nil
}

// parseIRIOrFunction reads an IRI constant, or a function call when the IRI
// is followed by an argument list.
func (p *parser) parseIRIOrFunction() (Expr, error) {
	n, err := p.parseVarOrIRI()
	if err != nil {
		return nil, err
	}
	if !p.isPunct("(") {
		return &TermExpr{Term: n.Term}, nil
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return &CallExpr{Function: n.Term.(rdf.IRI), Args: args}, nil
}

func (p *parser) parseArgs() ([]Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []Expr
	if p.acceptPunct(")") {
		return args, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.acceptPunct(")") {
			return args, nil
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
	}
}

func isBuiltin(word string) bool {
	_, ok := builtins[word]
	return ok
}

// resolve returns an IRI token resolved against BASE.
func (p *parser) resolve(t token) (rdf.IRI, error) {
	if p.base == nil {
		return rdf.IRI(t.text), nil
	}
	ref, err := url.Parse(t.text)
	if err != nil {
		return "", p.errorf(t, "invalid IRI %s: %v", t, err)
	}
	return rdf.IRI(p.base.ResolveReference(ref).String()), nil
}

// expand resolves a prefixed name against the declared prefixes.
func (p *parser) expand(t token) (rdf.IRI, error) {
	i := strings.IndexByte(t.text, ':')
	ns, ok := p.prefixes[t.text[:i]]
	if !ok {
		return "", p.errorf(t, "undefined prefix %q", t.text[:i])
	}
	return ns + rdf.IRI(t.text[i+1:]), nil
}
