package results

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"sparqld/internal/engine"
	"sparqld/internal/rdf"
)

// HTMLSerializer renders results as a standalone HTML page: a table for
// bindings and triples, the bare text true or false for booleans.
type HTMLSerializer struct{}

func (HTMLSerializer) MediaType() string { return "text/html" }

func (s HTMLSerializer) MediaTypes() []string {
	return []string{s.MediaType(), "application/xhtml+xml"}
}

// FormatIRI is empty; HTML has no W3C format IRI.
func (HTMLSerializer) FormatIRI() rdf.IRI { return "" }

func (HTMLSerializer) Supports(engine.ResultKind) bool { return true }

func (HTMLSerializer) Serialize(w io.Writer, res *engine.Result) error {
	body := element(atom.Body)
	switch res.Kind {
	case engine.ResultBoolean:
		if res.Boolean {
			body.AppendChild(text("true"))
		} else {
			body.AppendChild(text("false"))
		}
	case engine.ResultBindings:
		body.AppendChild(bindingsTable(res))
	case engine.ResultTriples:
		body.AppendChild(triplesTable(res))
	}

	head := element(atom.Head,
		withAttr(element(atom.Meta), "charset", "utf-8"),
		element(atom.Title, text("Query Results")),
	)
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(withAttr(element(atom.Html, head, body), "lang", "en"))
	return html.Render(w, doc)
}

func bindingsTable(res *engine.Result) *html.Node {
	header := element(atom.Tr)
	for _, v := range res.Vars {
		header.AppendChild(element(atom.Th, text("?"+v)))
	}

	tbody := element(atom.Tbody)
	for b := range res.Bindings() {
		row := element(atom.Tr)
		for _, v := range res.Vars {
			row.AppendChild(termCell(b[v]))
		}
		tbody.AppendChild(row)
	}
	return element(atom.Table, element(atom.Thead, header), tbody)
}

func triplesTable(res *engine.Result) *html.Node {
	header := element(atom.Tr)
	for _, name := range []string{"?subject", "?predicate", "?object"} {
		header.AppendChild(element(atom.Th, text(name)))
	}

	tbody := element(atom.Tbody)
	for t := range res.Triples() {
		tbody.AppendChild(element(atom.Tr, termCell(t.S), termCell(t.P), termCell(t.O)))
	}
	return element(atom.Table, element(atom.Thead, header), tbody)
}

// termCell renders one term. A nil term is an unbound variable and gives an
// empty cell.
func termCell(t rdf.Term) *html.Node {
	td := element(atom.Td)
	switch v := t.(type) {
	case nil:
	case rdf.IRI:
		td.AppendChild(withAttr(element(atom.A, text(string(v))), "href", string(v)))
	case rdf.BlankNode:
		td.AppendChild(text(v.String()))
	case rdf.Literal:
		td.AppendChild(text(literalMarkup(v)))
	default:
		td.AppendChild(text(t.String()))
	}
	return td
}

// literalMarkup writes a literal the way it reads in a query: quoted with
// its language tag or datatype. Integers are written bare.
func literalMarkup(l rdf.Literal) string {
	switch {
	case l.Lang != "":
		return quoteLexical(l.Lexical) + "@" + l.Lang
	case l.Datatype == rdf.XSDInteger:
		return l.Lexical
	case l.Datatype == "":
		return quoteLexical(l.Lexical)
	default:
		return quoteLexical(l.Lexical) + "^^<" + string(l.Datatype) + ">"
	}
}

var lexicalEscaper = strings.NewReplacer(`"`, `\"`, `\`, `\\`, "\t", `\t`, "\n", `\n`)

func quoteLexical(s string) string {
	return `"` + lexicalEscaper.Replace(s) + `"`
}

func element(a atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func withAttr(n *html.Node, key, val string) *html.Node {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
