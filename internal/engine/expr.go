package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
	"sparqld/internal/sparql"
)

// errType is the SPARQL type error. Filters treat it as false.
var errType = errors.New("type error")

var (
	trueLit  = rdf.NewTypedLiteral("true", rdf.XSDBoolean)
	falseLit = rdf.NewTypedLiteral("false", rdf.XSDBoolean)
)

func boolLit(b bool) rdf.Literal {
	if b {
		return trueLit
	}
	return falseLit
}

// castFunctions are the XPath constructor functions the engine implements.
var castFunctions = map[rdf.IRI]bool{
	rdf.XSDString:  true,
	rdf.XSDInteger: true,
	rdf.XSDDecimal: true,
	rdf.XSDDouble:  true,
	rdf.XSDFloat:   true,
	rdf.XSDBoolean: true,
}

// unsupportedFunction returns the first function IRI in e the engine
// cannot evaluate.
func unsupportedFunction(e sparql.Expr) (rdf.IRI, bool) {
	switch e := e.(type) {
	case *sparql.BinaryExpr:
		if iri, ok := unsupportedFunction(e.Left); ok {
			return iri, true
		}
		return unsupportedFunction(e.Right)
	case *sparql.UnaryExpr:
		return unsupportedFunction(e.Arg)
	case *sparql.CallExpr:
		if e.Name == "" && !castFunctions[e.Function] {
			return e.Function, true
		}
		for _, a := range e.Args {
			if iri, ok := unsupportedFunction(a); ok {
				return iri, true
			}
		}
	}
	return "", false
}

// exprVars lists the variables an expression reads.
func exprVars(e sparql.Expr) []string {
	var vars []string
	var walk func(sparql.Expr)
	walk = func(e sparql.Expr) {
		switch e := e.(type) {
		case *sparql.VarExpr:
			vars = append(vars, e.Name)
		case *sparql.BinaryExpr:
			walk(e.Left)
			walk(e.Right)
		case *sparql.UnaryExpr:
			walk(e.Arg)
		case *sparql.CallExpr:
			for _, a := range e.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return vars
}

// filterPasses evaluates a FILTER constraint: errors count as false.
func filterPasses(e sparql.Expr, b Binding) bool {
	v, err := evalExpr(e, b)
	if err != nil {
		return false
	}
	ok, err := ebv(v)
	return err == nil && ok
}

func evalExpr(e sparql.Expr, b Binding) (rdf.Term, error) {
	switch e := e.(type) {
	case *sparql.VarExpr:
		if t, ok := b[e.Name]; ok {
			return t, nil
		}
		return nil, errType
	case *sparql.TermExpr:
		return e.Term, nil
	case *sparql.UnaryExpr:
		return evalUnary(e, b)
	case *sparql.BinaryExpr:
		return evalBinary(e, b)
	case *sparql.CallExpr:
		if e.Name == "" {
			return evalCast(e, b)
		}
		return evalBuiltin(e, b)
	}
	return nil, errType
}

func evalUnary(e *sparql.UnaryExpr, b Binding) (rdf.Term, error) {
	v, err := evalExpr(e.Arg, b)
	if err != nil {
		return nil, err
	}
	if e.Op == "!" {
		ok, err := ebv(v)
		if err != nil {
			return nil, err
		}
		return boolLit(!ok), nil
	}
	n, ok := numericOf(v)
	if !ok {
		return nil, errType
	}
	if e.Op == "-" {
		n.i, n.f = -n.i, -n.f
	}
	return n.literal(), nil
}

func evalBinary(e *sparql.BinaryExpr, b Binding) (rdf.Term, error) {
	switch e.Op {
	case "||", "&&":
		return evalLogical(e, b)
	}

	left, err := evalExpr(e.Left, b)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(e.Right, b)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "=", "!=":
		eq, err := termsEqual(left, right)
		if err != nil {
			return nil, err
		}
		return boolLit(eq == (e.Op == "=")), nil
	case "<", ">", "<=", ">=":
		c, err := compareValues(left, right)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "<":
			return boolLit(c < 0), nil
		case ">":
			return boolLit(c > 0), nil
		case "<=":
			return boolLit(c <= 0), nil
		default:
			return boolLit(c >= 0), nil
		}
	case "+", "-", "*", "/":
		return arithmetic(e.Op, left, right)
	}
	return nil, errType
}

// evalLogical implements the error-tolerant truth tables of || and &&.
func evalLogical(e *sparql.BinaryExpr, b Binding) (rdf.Term, error) {
	lv, lerr := evalBool(e.Left, b)
	rv, rerr := evalBool(e.Right, b)
	if e.Op == "||" {
		switch {
		case lerr == nil && lv, rerr == nil && rv:
			return trueLit, nil
		case lerr == nil && rerr == nil:
			return falseLit, nil
		}
		return nil, errType
	}
	switch {
	case lerr == nil && !lv, rerr == nil && !rv:
		return falseLit, nil
	case lerr == nil && rerr == nil:
		return trueLit, nil
	}
	return nil, errType
}

func evalBool(e sparql.Expr, b Binding) (bool, error) {
	v, err := evalExpr(e, b)
	if err != nil {
		return false, err
	}
	return ebv(v)
}

// ebv computes the effective boolean value of a term.
func ebv(t rdf.Term) (bool, error) {
	lit, ok := t.(rdf.Literal)
	if !ok {
		return false, errType
	}
	switch dt := lit.DatatypeIRI(); {
	case dt == rdf.XSDBoolean:
		v, err := strconv.ParseBool(lit.Lexical)
		return err == nil && v, nil
	case dt == rdf.XSDString || dt == rdf.RDFLangString:
		return lit.Lexical != "", nil
	case rdf.IsNumericDatatype(dt):
		n, ok := numericOf(lit)
		if !ok {
			return false, nil
		}
		if n.isInt {
			return n.i != 0, nil
		}
		return n.f != 0 && !math.IsNaN(n.f), nil
	}
	return false, errType
}

// numeric is a parsed numeric literal.
type numeric struct {
	isInt bool
	i     int64
	f     float64
	dt    rdf.IRI
}

func numericOf(t rdf.Term) (numeric, bool) {
	lit, ok := t.(rdf.Literal)
	if !ok || lit.Lang != "" || !rdf.IsNumericDatatype(lit.Datatype) {
		return numeric{}, false
	}
	s := strings.TrimSpace(lit.Lexical)
	switch lit.Datatype {
	case rdf.XSDDecimal, rdf.XSDDouble, rdf.XSDFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return numeric{}, false
		}
		return numeric{f: f, dt: lit.Datatype}, true
	default:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return numeric{}, false
		}
		return numeric{isInt: true, i: i, f: float64(i), dt: rdf.XSDInteger}, true
	}
}

func (n numeric) literal() rdf.Literal {
	if n.isInt {
		return rdf.NewTypedLiteral(strconv.FormatInt(n.i, 10), rdf.XSDInteger)
	}
	if n.dt == rdf.XSDDecimal {
		s := strconv.FormatFloat(n.f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return rdf.NewTypedLiteral(s, rdf.XSDDecimal)
	}
	return rdf.NewTypedLiteral(strconv.FormatFloat(n.f, 'E', -1, 64), n.dt)
}

// promote picks the result type of an arithmetic operation.
func promote(a, b numeric) rdf.IRI {
	switch {
	case a.dt == rdf.XSDDouble || b.dt == rdf.XSDDouble:
		return rdf.XSDDouble
	case a.dt == rdf.XSDFloat || b.dt == rdf.XSDFloat:
		return rdf.XSDFloat
	case a.isInt && b.isInt:
		return rdf.XSDInteger
	default:
		return rdf.XSDDecimal
	}
}

func arithmetic(op string, left, right rdf.Term) (rdf.Term, error) {
	a, ok := numericOf(left)
	if !ok {
		return nil, errType
	}
	c, ok := numericOf(right)
	if !ok {
		return nil, errType
	}
	dt := promote(a, c)
	if op == "/" && dt == rdf.XSDInteger {
		dt = rdf.XSDDecimal
	}

	if dt == rdf.XSDInteger {
		var v int64
		switch op {
		case "+":
			v = a.i + c.i
		case "-":
			v = a.i - c.i
		case "*":
			v = a.i * c.i
		}
		return numeric{isInt: true, i: v, dt: dt}.literal(), nil
	}

	var v float64
	switch op {
	case "+":
		v = a.f + c.f
	case "-":
		v = a.f - c.f
	case "*":
		v = a.f * c.f
	case "/":
		if c.f == 0 && dt == rdf.XSDDecimal {
			return nil, errType
		}
		v = a.f / c.f
	}
	return numeric{f: v, dt: dt}.literal(), nil
}

func isStringLiteral(l rdf.Literal) bool {
	return l.Lang == "" && l.Datatype == ""
}

// termsEqual implements '=' with value comparison for known datatypes.
func termsEqual(a, b rdf.Term) (bool, error) {
	if a == b {
		return true, nil
	}
	la, aok := a.(rdf.Literal)
	lb, bok := b.(rdf.Literal)
	if !aok || !bok {
		return false, nil
	}
	if na, ok := numericOf(la); ok {
		if nb, ok := numericOf(lb); ok {
			return compareNumeric(na, nb) == 0, nil
		}
	}
	if c, ok := compareKnown(la, lb); ok {
		return c == 0, nil
	}
	if la.Lang != "" || lb.Lang != "" || isStringLiteral(la) || isStringLiteral(lb) {
		return false, nil
	}
	// two literals of unrecognized datatypes
	return false, errType
}

// compareValues orders two terms for the relational operators.
func compareValues(a, b rdf.Term) (int, error) {
	la, aok := a.(rdf.Literal)
	lb, bok := b.(rdf.Literal)
	if !aok || !bok {
		return 0, errType
	}
	if na, ok := numericOf(la); ok {
		if nb, ok := numericOf(lb); ok {
			return compareNumeric(na, nb), nil
		}
	}
	if c, ok := compareKnown(la, lb); ok {
		return c, nil
	}
	return 0, errType
}

// compareKnown compares strings, booleans and dateTimes of the same type.
func compareKnown(a, b rdf.Literal) (int, bool) {
	switch {
	case isStringLiteral(a) && isStringLiteral(b):
		return strings.Compare(a.Lexical, b.Lexical), true
	case a.Lang != "" && a.Lang == b.Lang:
		return strings.Compare(a.Lexical, b.Lexical), true
	case a.Datatype == rdf.XSDBoolean && b.Datatype == rdf.XSDBoolean:
		x, err1 := strconv.ParseBool(a.Lexical)
		y, err2 := strconv.ParseBool(b.Lexical)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	case a.Datatype == rdf.XSDDateTime && b.Datatype == rdf.XSDDateTime:
		x, err1 := time.Parse(time.RFC3339Nano, a.Lexical)
		y, err2 := time.Parse(time.RFC3339Nano, b.Lexical)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

func compareNumeric(a, b numeric) int {
	if a.isInt && b.isInt {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	}
	switch {
	case a.f < b.f:
		return -1
	case a.f > b.f:
		return 1
	}
	return 0
}

func evalBuiltin(e *sparql.CallExpr, b Binding) (rdf.Term, error) {
	if e.Name == "BOUND" {
		_, ok := b[e.Args[0].(*sparql.VarExpr).Name]
		return boolLit(ok), nil
	}

	args := make([]rdf.Term, len(e.Args))
	for i, a := range e.Args {
		v, err := evalExpr(a, b)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch e.Name {
	case "ISIRI":
		return boolLit(rdf.IsIRI(args[0])), nil
	case "ISLITERAL":
		return boolLit(rdf.IsLiteral(args[0])), nil
	case "ISBLANK":
		return boolLit(rdf.IsBlank(args[0])), nil
	case "SAMETERM":
		return boolLit(args[0] == args[1]), nil
	case "STR":
		if rdf.IsBlank(args[0]) {
			return nil, errType
		}
		return rdf.NewLiteral(args[0].Value()), nil
	case "LANG":
		lit, ok := args[0].(rdf.Literal)
		if !ok {
			return nil, errType
		}
		return rdf.NewLiteral(lit.Lang), nil
	case "DATATYPE":
		lit, ok := args[0].(rdf.Literal)
		if !ok {
			return nil, errType
		}
		return lit.DatatypeIRI(), nil
	case "LANGMATCHES":
		tag, ok1 := args[0].(rdf.Literal)
		rng, ok2 := args[1].(rdf.Literal)
		if !ok1 || !ok2 {
			return nil, errType
		}
		return boolLit(langMatches(tag.Lexical, rng.Lexical)), nil
	case "REGEX":
		return evalRegex(args)
	}
	return nil, errType
}

// langMatches is the basic filtering scheme of RFC 4647.
func langMatches(tag, rng string) bool {
	if rng == "*" {
		return tag != ""
	}
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	return tag == rng || strings.HasPrefix(tag, rng+"-")
}

var regexCache sync.Map

func evalRegex(args []rdf.Term) (rdf.Term, error) {
	text, ok := args[0].(rdf.Literal)
	if !ok || (text.Datatype != "" && text.Lang == "") {
		return nil, errType
	}
	pattern, ok := args[1].(rdf.Literal)
	if !ok || !isStringLiteral(pattern) {
		return nil, errType
	}
	flags := ""
	if len(args) == 3 {
		f, ok := args[2].(rdf.Literal)
		if !ok || !isStringLiteral(f) {
			return nil, errType
		}
		flags = f.Lexical
	}

	key := flags + "/" + pattern.Lexical
	if re, ok := regexCache.Load(key); ok {
		return boolLit(re.(*regexp.Regexp).MatchString(text.Lexical)), nil
	}
	for _, f := range flags {
		if !strings.ContainsRune("ism", f) {
			return nil, errType
		}
	}
	expr := pattern.Lexical
	if flags != "" {
		expr = "(?" + flags + ")" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errType
	}
	regexCache.Store(key, re)
	return boolLit(re.MatchString(text.Lexical)), nil
}

// evalCast applies an xsd constructor function.
func evalCast(e *sparql.CallExpr, b Binding) (rdf.Term, error) {
	if len(e.Args) != 1 {
		return nil, errType
	}
	v, err := evalExpr(e.Args[0], b)
	if err != nil {
		return nil, err
	}
	if rdf.IsBlank(v) {
		return nil, errType
	}
	lex := strings.TrimSpace(v.Value())

	switch e.Function {
	case rdf.XSDString:
		return rdf.NewLiteral(v.Value()), nil
	case rdf.XSDBoolean:
		if n, ok := numericOf(v); ok {
			return boolLit(n.f != 0 && !math.IsNaN(n.f)), nil
		}
		x, err := strconv.ParseBool(lex)
		if err != nil || (lex != "true" && lex != "false" && lex != "1" && lex != "0") {
			return nil, errType
		}
		return boolLit(x), nil
	case rdf.XSDInteger:
		if n, ok := numericOf(v); ok && !n.isInt {
			return numeric{isInt: true, i: int64(n.f), dt: rdf.XSDInteger}.literal(), nil
		}
		i, err := strconv.ParseInt(lex, 10, 64)
		if err != nil {
			return nil, errType
		}
		return numeric{isInt: true, i: i, dt: rdf.XSDInteger}.literal(), nil
	default:
		f, err := strconv.ParseFloat(lex, 64)
		if err != nil {
			return nil, errType
		}
		return numeric{f: f, dt: e.Function}.literal(), nil
	}
}
