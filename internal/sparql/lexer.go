package sparql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyntaxError reports a parse failure with its 1-based position.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI            // <...>, text is the IRI
	tokPName          // prefix:local, text is the full name
	tokVar            // ?x or $x, text is the name
	tokBlank          // _:label, text is the label
	tokString         // text is the unescaped value
	tokLangTag        // @en, text is the tag
	tokInteger
	tokDecimal
	tokDouble
	tokKeyword // bare word, text upper-cased; 'a' stays lower-case
	tokPunct   // { } ( ) . ; , * = != < > <= >= && || ! + - / ^^
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokIRI:
		return "<" + t.text + ">"
	case tokVar:
		return "?" + t.text
	case tokString:
		return strconv.Quote(t.text)
	default:
		return t.text
	}
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...interface{}) error {
	return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

// advance moves n bytes forward, tracking line and column.
func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else if l.src[l.pos]&0xC0 != 0x80 {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance(1)
			}
		default:
			return
		}
	}
}

func (l *lexer) tokenize() ([]token, error) {
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	line, col := l.line, l.col
	tok := func(kind tokenKind, text string, width int) (token, error) {
		l.advance(width)
		return token{kind: kind, text: text, line: line, col: col}, nil
	}

	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '<':
		if iri, width, ok := l.scanIRI(); ok {
			return tok(tokIRI, iri, width)
		}
		if l.peekByte(1) == '=' {
			return tok(tokPunct, "<=", 2)
		}
		return tok(tokPunct, "<", 1)
	case c == '>':
		if l.peekByte(1) == '=' {
			return tok(tokPunct, ">=", 2)
		}
		return tok(tokPunct, ">", 1)
	case c == '!':
		if l.peekByte(1) == '=' {
			return tok(tokPunct, "!=", 2)
		}
		return tok(tokPunct, "!", 1)
	case c == '&' && l.peekByte(1) == '&':
		return tok(tokPunct, "&&", 2)
	case c == '|' && l.peekByte(1) == '|':
		return tok(tokPunct, "||", 2)
	case c == '^' && l.peekByte(1) == '^':
		return tok(tokPunct, "^^", 2)
	case c == '?' || c == '$':
		name := l.scanName(l.pos + 1)
		if name == "" {
			return token{}, l.errorf(line, col, "expected variable name after %q", string(c))
		}
		return tok(tokVar, name, 1+len(name))
	case c == '_' && l.peekByte(1) == ':':
		label := l.scanName(l.pos + 2)
		if label == "" {
			return token{}, l.errorf(line, col, "expected blank node label")
		}
		return tok(tokBlank, label, 2+len(label))
	case c == '@':
		end := l.pos + 1
		for end < len(l.src) && (isASCIILetter(l.src[end]) || isDigit(l.src[end]) || l.src[end] == '-') {
			end++
		}
		if end == l.pos+1 {
			return token{}, l.errorf(line, col, "expected language tag")
		}
		return tok(tokLangTag, strings.ToLower(l.src[l.pos+1:end]), end-l.pos)
	case c == '"' || c == '\'':
		s, width, err := l.scanString()
		if err != nil {
			return token{}, err
		}
		return tok(tokString, s, width)
	case isDigit(c) || (c == '.' && isDigit(l.peekByte(1))):
		kind, text := l.scanNumber()
		return tok(kind, text, len(text))
	case strings.IndexByte("{}().;,*=+-/", c) >= 0:
		return tok(tokPunct, string(c), 1)
	case isNameStart(c) || c == ':':
		return l.scanWord(line, col)
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	if unicode.IsLetter(r) {
		return l.scanWord(line, col)
	}
	return token{}, l.errorf(line, col, "unexpected character %q", r)
}

// scanIRI reads <...> when the text up to '>' is a valid IRI reference.
func (l *lexer) scanIRI() (string, int, bool) {
	var sb strings.Builder
	i := l.pos + 1
	for i < len(l.src) {
		c := l.src[i]
		switch {
		case c == '>':
			return sb.String(), i + 1 - l.pos, true
		case c <= 0x20 || strings.IndexByte("<\"{}|^`", c) >= 0:
			return "", 0, false
		case c == '\\':
			r, w, ok := decodeUnicodeEscape(l.src[i:])
			if !ok {
				return "", 0, false
			}
			sb.WriteRune(r)
			i += w
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", 0, false
}

func (l *lexer) scanName(start int) string {
	end := start
	for end < len(l.src) {
		r, w := utf8.DecodeRuneInString(l.src[end:])
		if r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			end += w
			continue
		}
		break
	}
	return l.src[start:end]
}

// scanWord reads a keyword or a prefixed name. A trailing '.' is never part
// of a local name, so "ex:a." ends the triple.
func (l *lexer) scanWord(line, col int) (token, error) {
	end := l.pos
	colon := -1
	for end < len(l.src) {
		r, w := utf8.DecodeRuneInString(l.src[end:])
		if r == ':' && colon < 0 {
			colon = end
			end += w
			continue
		}
		if r == '_' || r == '-' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r) ||
			(colon >= 0 && (r == '%' || r == ':')) {
			end += w
			continue
		}
		break
	}
	for end > l.pos && l.src[end-1] == '.' {
		end--
	}
	text := l.src[l.pos:end]
	width := end - l.pos
	if colon >= 0 {
		l.advance(width)
		return token{kind: tokPName, text: text, line: line, col: col}, nil
	}
	if strings.Contains(text, ".") {
		return token{}, l.errorf(line, col, "unexpected %q", text)
	}
	l.advance(width)
	if text == "a" {
		return token{kind: tokKeyword, text: "a", line: line, col: col}, nil
	}
	return token{kind: tokKeyword, text: strings.ToUpper(text), line: line, col: col}, nil
}

func (l *lexer) scanNumber() (tokenKind, string) {
	i := l.pos
	for i < len(l.src) && isDigit(l.src[i]) {
		i++
	}
	kind := tokInteger
	if i < len(l.src) && l.src[i] == '.' && i+1 < len(l.src) && isDigit(l.src[i+1]) {
		kind = tokDecimal
		i++
		for i < len(l.src) && isDigit(l.src[i]) {
			i++
		}
	}
	if i < len(l.src) && (l.src[i] == 'e' || l.src[i] == 'E') {
		j := i + 1
		if j < len(l.src) && (l.src[j] == '+' || l.src[j] == '-') {
			j++
		}
		if j < len(l.src) && isDigit(l.src[j]) {
			kind = tokDouble
			i = j
			for i < len(l.src) && isDigit(l.src[i]) {
				i++
			}
		}
	}
	return kind, l.src[l.pos:i]
}

func (l *lexer) scanString() (string, int, error) {
	quote := l.src[l.pos]
	long := l.pos+2 < len(l.src) && l.src[l.pos+1] == quote && l.src[l.pos+2] == quote
	start := l.pos + 1
	if long {
		start = l.pos + 3
	}

	var sb strings.Builder
	i := start
	for i < len(l.src) {
		c := l.src[i]
		switch {
		case long && c == quote && strings.HasPrefix(l.src[i:], strings.Repeat(string(quote), 3)):
			return sb.String(), i + 3 - l.pos, nil
		case !long && c == quote:
			return sb.String(), i + 1 - l.pos, nil
		case !long && (c == '\n' || c == '\r'):
			return "", 0, l.errorf(l.line, l.col, "unterminated string")
		case c == '\\':
			if i+1 >= len(l.src) {
				return "", 0, l.errorf(l.line, l.col, "unterminated escape")
			}
			switch e := l.src[i+1]; e {
			case 't':
				sb.WriteByte('\t')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case '"', '\'', '\\':
				sb.WriteByte(e)
			case 'u', 'U':
				r, w, ok := decodeUnicodeEscape(l.src[i:])
				if !ok {
					return "", 0, l.errorf(l.line, l.col, "invalid unicode escape")
				}
				sb.WriteRune(r)
				i += w
				continue
			default:
				return "", 0, l.errorf(l.line, l.col, "invalid escape \\%c", e)
			}
			i += 2
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", 0, l.errorf(l.line, l.col, "unterminated string")
}

// decodeUnicodeEscape decodes \uXXXX or \UXXXXXXXX at the start of s.
func decodeUnicodeEscape(s string) (rune, int, bool) {
	if len(s) < 2 || s[0] != '\\' {
		return 0, 0, false
	}
	n := 0
	switch s[1] {
	case 'u':
		n = 4
	case 'U':
		n = 8
	default:
		return 0, 0, false
	}
	if len(s) < 2+n {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[2:2+n], 16, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0, 0, false
	}
	return rune(v), 2 + n, true
}

func isDigit(c byte) bool       { return c >= '0' && c <= '9' }
func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isNameStart(c byte) bool   { return isASCIILetter(c) || c == '_' }
