package rdf

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderNTriples(t *testing.T) {
	input := `# comment
<http://ex/s> <http://ex/p> <http://ex/o> .

<http://ex/s> <http://ex/name> "Alice"@EN .
_:b1 <http://ex/age> "42"^^<http://www.w3.org/2001/XMLSchema#integer> .
<http://ex/s> <http://ex/note> "line\nbreak \"quoted\" é" .
<http://ex/s> <http://ex/str> "plain"^^<http://www.w3.org/2001/XMLSchema#string> .
`
	quads, err := NewReader(strings.NewReader(input), FormatNTriples).ReadAll()
	require.NoError(t, err)
	require.Len(t, quads, 5)

	assert.Equal(t, IRI("http://ex/s"), quads[0].S)
	assert.Equal(t, IRI("http://ex/o"), quads[0].O)
	assert.Nil(t, quads[0].G)

	assert.Equal(t, NewLangLiteral("Alice", "en"), quads[1].O)
	assert.Equal(t, BlankNode("b1"), quads[2].S)
	assert.Equal(t, Literal{Lexical: "42", Datatype: XSDInteger}, quads[2].O)
	assert.Equal(t, NewLiteral("line\nbreak \"quoted\" é"), quads[3].O)
	assert.Equal(t, NewLiteral("plain"), quads[4].O, "xsd:string normalizes to a simple literal")
}

func TestReaderNQuads(t *testing.T) {
	input := "<http://ex/s> <http://ex/p> \"v\" <http://ex/g> .\n<http://ex/s> <http://ex/p> \"w\" .\n"
	r := NewReader(strings.NewReader(input), FormatNQuads)

	q, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, IRI("http://ex/g"), q.G)

	q, err = r.Next()
	require.NoError(t, err)
	assert.Nil(t, q.G)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing dot", `<http://ex/s> <http://ex/p> <http://ex/o>`},
		{"literal subject", `"x" <http://ex/p> <http://ex/o> .`},
		{"blank predicate", `<http://ex/s> _:p <http://ex/o> .`},
		{"unterminated literal", `<http://ex/s> <http://ex/p> "abc .`},
		{"graph in ntriples", `<http://ex/s> <http://ex/p> <http://ex/o> <http://ex/g> .`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader("\n"+tt.input+"\n"), FormatNTriples).ReadAll()
			var syn *SyntaxError
			require.ErrorAs(t, err, &syn)
			assert.Equal(t, 2, syn.Line)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("data/dump.NT")
	require.NoError(t, err)
	assert.Equal(t, FormatNTriples, f)

	f, err = FormatFromPath("graphs.nq")
	require.NoError(t, err)
	assert.Equal(t, FormatNQuads, f)

	_, err = FormatFromPath("data.ttl")
	assert.Error(t, err)
}
