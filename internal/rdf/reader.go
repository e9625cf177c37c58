package rdf

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Format identifies a line-based RDF serialization the reader understands.
type Format string

const (
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
)

// FormatFromPath infers the format from a filename extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt":
		return FormatNTriples, nil
	case ".nq":
		return FormatNQuads, nil
	default:
		return "", fmt.Errorf("unknown RDF format for path: %s", path)
	}
}

// SyntaxError reports a malformed statement.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Msg)
}

// Reader reads quads from N-Triples or N-Quads input, one statement per line.
type Reader struct {
	r      *bufio.Reader
	format Format
	line   int
}

// NewReader returns a Reader for the given format.
func NewReader(r io.Reader, format Format) *Reader {
	return &Reader{r: bufio.NewReader(r), format: format}
}

// Next returns the next quad, or io.EOF when the input is exhausted. Quads
// read from N-Triples, and N-Quads statements without a graph label, have a
// nil graph.
func (r *Reader) Next() (Quad, error) {
	for {
		line, err := r.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return Quad{}, err
		}
		r.line++
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			if err == io.EOF {
				return Quad{}, io.EOF
			}
			continue
		}
		q, perr := r.parseLine(line)
		if perr != nil {
			return Quad{}, perr
		}
		return q, nil
	}
}

// ReadAll reads every remaining quad.
func (r *Reader) ReadAll() ([]Quad, error) {
	var quads []Quad
	for {
		q, err := r.Next()
		if err == io.EOF {
			return quads, nil
		}
		if err != nil {
			return quads, err
		}
		quads = append(quads, q)
	}
}

func (r *Reader) parseLine(line string) (Quad, error) {
	c := &lineCursor{input: line, line: r.line}
	s, err := c.term(false)
	if err != nil {
		return Quad{}, err
	}
	if s.Kind() == KindLiteral {
		return Quad{}, c.errorf("literal not allowed as subject")
	}
	p, err := c.term(false)
	if err != nil {
		return Quad{}, err
	}
	if p.Kind() != KindIRI {
		return Quad{}, c.errorf("predicate must be an IRI")
	}
	o, err := c.term(true)
	if err != nil {
		return Quad{}, err
	}
	var g Term
	c.skipWS()
	if r.format == FormatNQuads && c.pos < len(c.input) && c.input[c.pos] != '.' {
		g, err = c.term(false)
		if err != nil {
			return Quad{}, err
		}
	}
	c.skipWS()
	if c.pos >= len(c.input) || c.input[c.pos] != '.' {
		return Quad{}, c.errorf("expected '.' at end of statement")
	}
	c.pos++
	c.skipWS()
	if c.pos < len(c.input) && c.input[c.pos] != '#' {
		return Quad{}, c.errorf("unexpected content after '.'")
	}
	return Quad{S: s, P: p, O: o, G: g}, nil
}

type lineCursor struct {
	input string
	pos   int
	line  int
}

func (c *lineCursor) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Line: c.line, Msg: fmt.Sprintf(format, args...)}
}

func (c *lineCursor) skipWS() {
	for c.pos < len(c.input) && (c.input[c.pos] == ' ' || c.input[c.pos] == '\t') {
		c.pos++
	}
}

func (c *lineCursor) term(allowLiteral bool) (Term, error) {
	c.skipWS()
	if c.pos >= len(c.input) {
		return nil, c.errorf("unexpected end of line")
	}
	switch {
	case c.input[c.pos] == '<':
		return c.iri()
	case strings.HasPrefix(c.input[c.pos:], "_:"):
		return c.blank()
	case c.input[c.pos] == '"':
		if !allowLiteral {
			return nil, c.errorf("literal not allowed here")
		}
		return c.literal()
	default:
		return nil, c.errorf("unexpected character %q", c.input[c.pos])
	}
}

func (c *lineCursor) iri() (IRI, error) {
	c.pos++ // '<'
	var sb strings.Builder
	for c.pos < len(c.input) {
		ch := c.input[c.pos]
		switch {
		case ch == '>':
			c.pos++
			return IRI(sb.String()), nil
		case ch == '\\':
			r, err := c.unicodeEscape()
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
		case ch == ' ' || ch == '<' || ch == '"':
			return "", c.errorf("invalid character %q in IRI", ch)
		default:
			sb.WriteByte(ch)
			c.pos++
		}
	}
	return "", c.errorf("unterminated IRI")
}

func (c *lineCursor) blank() (BlankNode, error) {
	c.pos += 2
	start := c.pos
	for c.pos < len(c.input) {
		ch := c.input[c.pos]
		if ch == ' ' || ch == '\t' || ch == '<' || ch == '"' {
			break
		}
		// A trailing '.' terminates the statement rather than the label.
		if ch == '.' && (c.pos+1 == len(c.input) || c.input[c.pos+1] == ' ' || c.input[c.pos+1] == '\t') {
			break
		}
		c.pos++
	}
	if start == c.pos {
		return "", c.errorf("blank node label missing")
	}
	return BlankNode(c.input[start:c.pos]), nil
}

func (c *lineCursor) literal() (Literal, error) {
	c.pos++ // '"'
	var sb strings.Builder
	closed := false
	for c.pos < len(c.input) {
		ch := c.input[c.pos]
		if ch == '"' {
			c.pos++
			closed = true
			break
		}
		if ch != '\\' {
			sb.WriteByte(ch)
			c.pos++
			continue
		}
		if c.pos+1 >= len(c.input) {
			return Literal{}, c.errorf("unterminated escape")
		}
		switch c.input[c.pos+1] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '"':
			sb.WriteByte('"')
		case '\'':
			sb.WriteByte('\'')
		case '\\':
			sb.WriteByte('\\')
		case 'u', 'U':
			r, err := c.unicodeEscape()
			if err != nil {
				return Literal{}, err
			}
			sb.WriteRune(r)
			continue
		default:
			return Literal{}, c.errorf("invalid escape \\%c", c.input[c.pos+1])
		}
		c.pos += 2
	}
	if !closed {
		return Literal{}, c.errorf("unterminated literal")
	}
	lexical := sb.String()
	if c.pos < len(c.input) && c.input[c.pos] == '@' {
		c.pos++
		start := c.pos
		for c.pos < len(c.input) && (isAlnum(c.input[c.pos]) || c.input[c.pos] == '-') {
			c.pos++
		}
		if start == c.pos {
			return Literal{}, c.errorf("empty language tag")
		}
		return NewLangLiteral(lexical, c.input[start:c.pos]), nil
	}
	if strings.HasPrefix(c.input[c.pos:], "^^") {
		c.pos += 2
		if c.pos >= len(c.input) || c.input[c.pos] != '<' {
			return Literal{}, c.errorf("expected datatype IRI")
		}
		dt, err := c.iri()
		if err != nil {
			return Literal{}, err
		}
		return NewTypedLiteral(lexical, dt), nil
	}
	return NewLiteral(lexical), nil
}

// unicodeEscape decodes \uXXXX or \UXXXXXXXX at the cursor.
func (c *lineCursor) unicodeEscape() (rune, error) {
	if c.pos+1 >= len(c.input) {
		return 0, c.errorf("unterminated escape")
	}
	width := 0
	switch c.input[c.pos+1] {
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return 0, c.errorf("invalid escape \\%c", c.input[c.pos+1])
	}
	start := c.pos + 2
	if start+width > len(c.input) {
		return 0, c.errorf("truncated unicode escape")
	}
	v, err := strconv.ParseUint(c.input[start:start+width], 16, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0, c.errorf("invalid unicode escape %q", c.input[c.pos:start+width])
	}
	c.pos = start + width
	return rune(v), nil
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
