package sd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparqld/internal/rdf"
	"sparqld/internal/store"
	"sparqld/internal/testutil"
)

const (
	exA   = rdf.IRI("http://example.org/a")
	exP   = rdf.IRI("http://example.org/p")
	exG1  = rdf.IRI("http://example.org/g1")
	exG2  = rdf.IRI("http://example.org/g2")
	jsonF = rdf.IRI(rdf.NSFormats + "SPARQL_Results_JSON")
)

func populated(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Load(ctx, time.Time{}, []rdf.Quad{
		{S: exA, P: exP, O: rdf.NewLiteral("1")},
		{S: exA, P: exP, O: rdf.NewLiteral("2")},
		{S: exA, P: exP, O: rdf.NewLiteral("3"), G: exG1},
		{S: exA, P: exP, O: rdf.NewLiteral("4"), G: exG2},
		{S: exA, P: exP, O: rdf.NewLiteral("5"), G: exG2},
	}))
	require.NoError(t, st.SetPrefix(ctx, "ex", "http://example.org/"))
	return st
}

func TestBuildCountsGraphs(t *testing.T) {
	d, err := Build(context.Background(), populated(t), Options{ResultFormats: []rdf.IRI{jsonF}})
	require.NoError(t, err)

	require.NotNil(t, d.DefaultGraphTriples)
	assert.EqualValues(t, 2, *d.DefaultGraphTriples)
	assert.Equal(t, []GraphDescription{{Name: exG1, Triples: 1}, {Name: exG2, Triples: 2}}, d.Graphs)
	assert.Equal(t, map[string]string{"ex": "http://example.org/"}, d.Prefixes)
	assert.Equal(t, []rdf.IRI{rdf.DefaultGraph}, d.Dataset.DefaultGraphs)
}

func TestBuildRespectsGraphLimit(t *testing.T) {
	d, err := Build(context.Background(), populated(t), Options{GraphLimit: 2})
	require.NoError(t, err)
	assert.Nil(t, d.DefaultGraphTriples)
	assert.Empty(t, d.Graphs)

	d, err = Build(context.Background(), populated(t), Options{GraphLimit: 3})
	require.NoError(t, err)
	assert.NotNil(t, d.DefaultGraphTriples)
	assert.Len(t, d.Graphs, 2)
}

func TestTurtleZeroGraphs(t *testing.T) {
	d, err := Build(context.Background(), store.NewMemoryStore(), Options{
		SupportedLanguages: []rdf.IRI{rdf.NSSD + "SPARQL10Query"},
		ResultFormats:      []rdf.IRI{jsonF},
	})
	require.NoError(t, err)

	out := d.Turtle("http://localhost/sparql")
	assert.Equal(t, `@prefix sd: <http://www.w3.org/ns/sparql-service-description#> .
@prefix void: <http://rdfs.org/ns/void#> .
@prefix sh: <http://www.w3.org/ns/shacl#> .

[] a sd:Service ;
    sd:endpoint <http://localhost/sparql> ;
    sd:supportedLanguage <http://www.w3.org/ns/sparql-service-description#SPARQL10Query> ;
    sd:resultFormat <http://www.w3.org/ns/formats/SPARQL_Results_JSON> ;
    sd:defaultDataset [
        a sd:Dataset ;
        sd:defaultGraph [ a sd:Graph ] ;
    ] ;
	.
`, out)
	assert.NotContains(t, out, "void:triples")
	assert.NotContains(t, out, "sd:namedGraph")
}

func TestTurtleDescribesGraphsAndPrefixes(t *testing.T) {
	d, err := Build(context.Background(), populated(t), Options{
		ExtensionFunctions: []string{"http://example.org/fn#distance"},
		Features:           []string{rdf.NSSD + "BasicFederatedQuery"},
	})
	require.NoError(t, err)
	d.Prefixes["zz"] = "http://example.org/\"quoted\"/"

	out := d.Turtle("http://localhost/sparql")
	assert.Contains(t, out, "    sd:extensionFunction <http://example.org/fn#distance> ;\n")
	assert.Contains(t, out, "    sd:feature <http://www.w3.org/ns/sparql-service-description#BasicFederatedQuery> ;\n")
	assert.Contains(t, out, "sd:defaultGraph [ a sd:Graph ; void:triples 2 ] ;\n")
	assert.Contains(t, out, "sd:namedGraph [ sd:name <http://example.org/g1> ; sd:graph [ a sd:Graph ; void:triples 1 ] ] ;\n")
	assert.Contains(t, out, "sd:namedGraph [ sd:name <http://example.org/g2> ; sd:graph [ a sd:Graph ; void:triples 2 ] ] ;\n")
	assert.Contains(t, out, `[ sh:prefix "ex" ; sh:namespace "http://example.org/"^^<http://www.w3.org/2001/XMLSchema#anyURI> ]`)
	assert.Contains(t, out, `sh:namespace "http://example.org/\"quoted\"/"^^`)
	assert.Less(t, strings.Index(out, `"ex"`), strings.Index(out, `"zz"`))
	assert.True(t, strings.HasSuffix(out, "\t.\n"))
}

func TestTurtleEscapesEndpoint(t *testing.T) {
	d := &Description{}
	out := d.Turtle("http://localhost/sparql?x=<y>")
	assert.Contains(t, out, `sd:endpoint <http://localhost/sparql?x=\u003Cy\u003E> ;`)
}

func TestTurtleGolden(t *testing.T) {
	d, err := Build(context.Background(), populated(t), Options{
		SupportedLanguages: []rdf.IRI{rdf.NSSD + "SPARQL10Query"},
		ResultFormats:      []rdf.IRI{jsonF},
	})
	require.NoError(t, err)

	testutil.CompareGolden(t, "service_description", []byte(d.Turtle("http://localhost/sparql")))
}
