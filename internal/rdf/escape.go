package rdf

import (
	"fmt"
	"strings"
)

// EscapeString escapes s for use inside a double-quoted N-Triples or Turtle
// string literal.
func EscapeString(s string) string {
	if !needsStringEscape(s) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\u%04X`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func needsStringEscape(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' || c < 0x20 || c == 0x7f {
			return true
		}
	}
	return false
}

// EscapeIRI escapes the characters that may not appear literally inside an
// IRIREF using \u escapes.
func EscapeIRI(s string) string {
	if !needsIRIEscape(s) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if isIRIForbidden(r) {
			fmt.Fprintf(&sb, `\u%04X`, r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func needsIRIEscape(s string) bool {
	for _, r := range s {
		if isIRIForbidden(r) {
			return true
		}
	}
	return false
}

func isIRIForbidden(r rune) bool {
	if r <= 0x20 {
		return true
	}
	switch r {
	case '<', '>', '"', '{', '}', '|', '^', '`', '\\':
		return true
	}
	return false
}
