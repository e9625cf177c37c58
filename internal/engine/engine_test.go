package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
	"sparqld/internal/sparql"
	"sparqld/internal/store"
)

const (
	ex       = "http://example.org/"
	prologue = "PREFIX ex: <http://example.org/>\n"

	alice  = rdf.IRI(ex + "alice")
	bob    = rdf.IRI(ex + "bob")
	carol  = rdf.IRI(ex + "carol")
	person = rdf.IRI(ex + "Person")
	name   = rdf.IRI(ex + "name")
	age    = rdf.IRI(ex + "age")
	knows  = rdf.IRI(ex + "knows")
	email  = rdf.IRI(ex + "email")
	g1     = rdf.IRI(ex + "g1")
	g2     = rdf.IRI(ex + "g2")
)

var (
	loadedDefault = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loadedG1      = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	loadedG2      = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func integer(s string) rdf.Literal { return rdf.NewTypedLiteral(s, rdf.XSDInteger) }

func newFixtureStore(t *testing.T, versioned bool) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()

	stamp := func(v time.Time) time.Time {
		if versioned {
			return v
		}
		return time.Time{}
	}
	require.NoError(t, st.Load(ctx, stamp(loadedDefault), []rdf.Quad{
		{S: alice, P: rdf.RDFType, O: person},
		{S: alice, P: name, O: rdf.NewLiteral("Alice")},
		{S: alice, P: age, O: integer("30")},
		{S: alice, P: knows, O: bob},
		{S: bob, P: rdf.RDFType, O: person},
		{S: bob, P: name, O: rdf.NewLiteral("Bob")},
		{S: bob, P: age, O: integer("25")},
		{S: carol, P: rdf.RDFType, O: person},
		{S: carol, P: name, O: rdf.NewLangLiteral("Carol", "en")},
		{S: carol, P: name, O: rdf.NewLangLiteral("Carole", "fr")},
	}))
	require.NoError(t, st.Load(ctx, stamp(loadedG1), []rdf.Quad{
		{S: alice, P: email, O: rdf.IRI("mailto:alice@example.org"), G: g1},
	}))
	require.NoError(t, st.Load(ctx, stamp(loadedG2), []rdf.Quad{
		{S: bob, P: email, O: rdf.IRI("mailto:bob@example.org"), G: g2},
	}))
	return st
}

func mustParse(t *testing.T, text string) *sparql.Query {
	t.Helper()
	q, err := sparql.Parse(prologue + text)
	require.NoError(t, err)
	return q
}

func defaultDataset(t *testing.T, st store.QuadStore) store.Dataset {
	t.Helper()
	ds, err := st.DefaultDataset(context.Background())
	require.NoError(t, err)
	return ds
}

func evalBindings(t *testing.T, s Strategy, st store.QuadStore, ds store.Dataset, text string) []Binding {
	t.Helper()
	attempt, err := s.Evaluate(context.Background(), mustParse(t, text), st, ds)
	require.NoError(t, err)
	require.False(t, attempt.Declined, attempt.Reason)
	bindings, err := CollectBindings(attempt.Result)
	require.NoError(t, err)
	return bindings
}

// canonical renders solutions as sorted strings for order-insensitive
// comparison.
func canonical(bindings []Binding) []string {
	out := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts := make([]string, 0, len(b))
		for k, v := range b {
			parts = append(parts, k+"="+v.String())
		}
		sort.Strings(parts)
		out = append(out, strings.Join(parts, " "))
	}
	sort.Strings(out)
	return out
}

func TestPlannerMatchesNaive(t *testing.T) {
	st := newFixtureStore(t, true)
	ds := defaultDataset(t, st)

	queries := map[string]string{
		"bgp":           `SELECT ?s ?n WHERE { ?s a ex:Person ; ex:name ?n }`,
		"filter":        `SELECT ?s WHERE { ?s ex:age ?a FILTER(?a > 26) }`,
		"graph var":     `SELECT ?g ?m WHERE { GRAPH ?g { ?s ex:email ?m } }`,
		"graph const":   `SELECT ?s ?m WHERE { ?s ex:name ?n GRAPH ex:g1 { ?s ex:email ?m } }`,
		"chain":         `SELECT * WHERE { ?a ex:knows ?b . ?b ex:name ?n }`,
		"nested filter": `SELECT ?s WHERE { { ?s ex:age ?a FILTER(?a < 30) } ?s a ex:Person }`,
		"cross product": `SELECT ?x ?y WHERE { ?x ex:age ?a . ?y ex:knows ?z }`,
		"no match":      `SELECT ?s WHERE { ?s ex:missing ?o }`,
	}

	for label, text := range queries {
		t.Run(label, func(t *testing.T) {
			planned := evalBindings(t, NewPlanner(), st, ds, text)
			naive := evalBindings(t, NewNaive(), st, ds, text)
			assert.Equal(t, canonical(naive), canonical(planned))
		})
	}
}

func TestPlannerDeclines(t *testing.T) {
	st := newFixtureStore(t, true)
	ds := defaultDataset(t, st)

	queries := map[string]string{
		"optional":     `SELECT * WHERE { ?s a ex:Person OPTIONAL { ?s ex:age ?a } }`,
		"union":        `SELECT * WHERE { { ?s ex:age ?a } UNION { ?s ex:knows ?a } }`,
		"describe":     `DESCRIBE ex:alice`,
		"filter scope": `SELECT * WHERE { ?s ex:age ?a { ?s ex:name ?n FILTER(?a > 1) } }`,
		"empty graph":  `SELECT ?g WHERE { GRAPH ?g { } }`,
		"function":     `SELECT * WHERE { ?s ex:age ?a FILTER(ex:fn(?a)) }`,
	}
	for label, text := range queries {
		t.Run(label, func(t *testing.T) {
			attempt, err := NewPlanner().Evaluate(context.Background(), mustParse(t, text), st, ds)
			require.NoError(t, err)
			assert.True(t, attempt.Declined)
			assert.NotEmpty(t, attempt.Reason)
			assert.Nil(t, attempt.Result)
		})
	}
}

type recordingTracer struct {
	mu    sync.Mutex
	spans []string
}

func (r *recordingTracer) BeginSpan(ctx context.Context, name string) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, "begin "+name)
	return ctx
}

func (r *recordingTracer) EndSpan(_ context.Context, name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.spans = append(r.spans, "end "+name+" "+status)
}

func TestDispatcherFallbackMatchesNaive(t *testing.T) {
	st := newFixtureStore(t, true)
	ds := defaultDataset(t, st)
	text := `SELECT ?s ?a WHERE { ?s a ex:Person OPTIONAL { ?s ex:age ?a } } ORDER BY ?s`

	tracer := &recordingTracer{}
	out, err := NewDispatcher(nil, tracer).Evaluate(context.Background(), mustParse(t, text), st, ds)
	require.NoError(t, err)
	assert.Equal(t, "naive", out.Strategy)
	got, err := CollectBindings(out.Result)
	require.NoError(t, err)

	want := evalBindings(t, NewNaive(), st, ds, text)
	assert.Equal(t, want, got)
	assert.Equal(t, []Binding{
		{"s": alice, "a": integer("30")},
		{"s": bob, "a": integer("25")},
		{"s": carol},
	}, got)

	assert.Equal(t, []string{
		"begin " + SpanVersion, "end " + SpanVersion + " ok",
		"begin " + SpanPlan, "end " + SpanPlan + " ok",
		"begin " + SpanFallback, "end " + SpanFallback + " ok",
		"begin " + SpanIterate, "end " + SpanIterate + " ok",
	}, tracer.spans)
}

func TestIterateSpanEndsWhenResultDrained(t *testing.T) {
	st := newFixtureStore(t, true)
	ds := defaultDataset(t, st)

	tracer := &recordingTracer{}
	out, err := NewDispatcher(nil, tracer).Evaluate(context.Background(),
		mustParse(t, `SELECT ?n WHERE { ex:bob ex:name ?n }`), st, ds)
	require.NoError(t, err)
	assert.Equal(t, "begin "+SpanIterate, tracer.spans[len(tracer.spans)-1],
		"iteration is still open before the result is read")

	_, err = CollectBindings(out.Result)
	require.NoError(t, err)
	assert.Equal(t, "end "+SpanIterate+" ok", tracer.spans[len(tracer.spans)-1])

	// A second read fails without closing the span again.
	n := len(tracer.spans)
	_, err = CollectBindings(out.Result)
	assert.ErrorIs(t, err, ErrConsumed)
	assert.Len(t, tracer.spans, n)

	tracer = &recordingTracer{}
	_, err = NewDispatcher(nil, tracer).Evaluate(context.Background(),
		mustParse(t, `ASK { ex:bob ex:name ?n }`), st, ds)
	require.NoError(t, err)
	assert.NotContains(t, tracer.spans, "begin "+SpanIterate)
}

func TestDispatcherUsesPlanner(t *testing.T) {
	st := newFixtureStore(t, true)
	out, err := NewDispatcher(nil, nil).Evaluate(context.Background(),
		mustParse(t, `SELECT ?n WHERE { ex:bob ex:name ?n }`), st, defaultDataset(t, st))
	require.NoError(t, err)
	assert.Equal(t, "planner", out.Strategy)
	assert.Equal(t, []string{"n"}, out.Result.Vars)
}

type decliningStrategy struct{}

func (decliningStrategy) Name() string { return "declining" }

func (decliningStrategy) Evaluate(context.Context, *sparql.Query, store.QuadStore, store.Dataset) (Attempt, error) {
	return Decline("never"), nil
}

func TestDispatcherBothDecline(t *testing.T) {
	st := newFixtureStore(t, true)
	d := NewDispatcherWith(decliningStrategy{}, decliningStrategy{}, nil, nil)
	_, err := d.Evaluate(context.Background(), mustParse(t, `ASK { ?s ?p ?o }`), st, defaultDataset(t, st))
	require.Error(t, err)
	assert.Equal(t, errors.EvaluationFailure, errors.CodeOf(err))
}

func TestDispatcherUnsupportedFunction(t *testing.T) {
	st := newFixtureStore(t, true)
	_, err := NewDispatcher(nil, nil).Evaluate(context.Background(),
		mustParse(t, `SELECT * WHERE { ?s ex:age ?a FILTER(ex:fn(?a)) }`), st, defaultDataset(t, st))
	require.Error(t, err)
	assert.Equal(t, errors.EvaluationFailure, errors.CodeOf(err))
	assert.Contains(t, err.Error(), ex+"fn")
}

func TestLastModified(t *testing.T) {
	tests := []struct {
		name      string
		versioned bool
		query     string
		want      time.Time
		has       bool
	}{
		{"default graph", true, `SELECT * WHERE { ?s ?p ?o }`, loadedDefault, true},
		{"named graph", true, `SELECT * WHERE { GRAPH ex:g1 { ?s ?p ?o } }`, loadedG1, true},
		{"any named graph", true, `SELECT * WHERE { GRAPH ?g { ?s ?p ?o } }`, loadedG2, true},
		{"no patterns", true, `ASK { }`, time.Time{}, false},
		{"unversioned", false, `SELECT * WHERE { ?s ?p ?o }`, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFixtureStore(t, tt.versioned)
			out, err := NewDispatcher(nil, nil).Evaluate(context.Background(), mustParse(t, tt.query), st, defaultDataset(t, st))
			require.NoError(t, err)
			assert.Equal(t, tt.has, out.HasLastModified)
			assert.True(t, tt.want.Equal(out.LastModified), "got %v", out.LastModified)
		})
	}
}

func TestOptionalFilterIsJoinCondition(t *testing.T) {
	st := newFixtureStore(t, true)
	got := evalBindings(t, NewNaive(), st, defaultDataset(t, st),
		`SELECT ?s ?a WHERE { ?s a ex:Person OPTIONAL { ?s ex:age ?a FILTER(?a > 26) } }`)
	assert.Equal(t, []Binding{
		{"s": alice, "a": integer("30")},
		{"s": bob},
		{"s": carol},
	}, got)
}

func TestUnion(t *testing.T) {
	st := newFixtureStore(t, true)
	got := evalBindings(t, NewNaive(), st, defaultDataset(t, st),
		`SELECT ?x WHERE { { ex:alice ex:knows ?x } UNION { ?x ex:age 30 } }`)
	assert.Equal(t, []Binding{{"x": bob}, {"x": alice}}, got)
}

func TestSolutionModifiers(t *testing.T) {
	st := newFixtureStore(t, true)
	ds := defaultDataset(t, st)

	tests := []struct {
		name  string
		query string
		want  []Binding
	}{
		{
			"order desc with limit",
			`SELECT ?s WHERE { ?s ex:age ?a } ORDER BY DESC(?a) LIMIT 1`,
			[]Binding{{"s": alice}},
		},
		{
			"order asc with offset",
			`SELECT ?s WHERE { ?s ex:age ?a } ORDER BY ?a OFFSET 1`,
			[]Binding{{"s": alice}},
		},
		{
			"distinct",
			`SELECT DISTINCT ?t WHERE { ?s a ?t }`,
			[]Binding{{"t": person}},
		},
		{
			"limit zero",
			`SELECT ?s WHERE { ?s a ?t } LIMIT 0`,
			nil,
		},
		{
			"order by string",
			`SELECT ?n WHERE { ?s ex:name ?n FILTER(isLiteral(?n) && lang(?n) = "") } ORDER BY DESC(str(?n))`,
			[]Binding{{"n": rdf.NewLiteral("Bob")}, {"n": rdf.NewLiteral("Alice")}},
		},
	}

	for _, tt := range tests {
		for _, s := range []Strategy{NewPlanner(), NewNaive()} {
			t.Run(tt.name+"/"+s.Name(), func(t *testing.T) {
				assert.Equal(t, tt.want, evalBindings(t, s, st, ds, tt.query))
			})
		}
	}
}

func TestAsk(t *testing.T) {
	st := newFixtureStore(t, true)
	ds := defaultDataset(t, st)
	for _, s := range []Strategy{NewPlanner(), NewNaive()} {
		for text, want := range map[string]bool{
			`ASK { ex:alice ex:knows ex:bob }`: true,
			`ASK { ex:bob ex:knows ex:alice }`: false,
		} {
			attempt, err := s.Evaluate(context.Background(), mustParse(t, text), st, ds)
			require.NoError(t, err)
			require.Equal(t, ResultBoolean, attempt.Result.Kind)
			assert.Equal(t, want, attempt.Result.Boolean, "%s: %s", s.Name(), text)
		}
	}
}

func TestConstructFreshBlankNodes(t *testing.T) {
	st := newFixtureStore(t, true)
	text := `CONSTRUCT { ?s ex:label ?n . _:x ex:of ?s } WHERE { ?s a ex:Person ; ex:name ?n }`

	for _, s := range []Strategy{NewPlanner(), NewNaive()} {
		t.Run(s.Name(), func(t *testing.T) {
			attempt, err := s.Evaluate(context.Background(), mustParse(t, text), st, defaultDataset(t, st))
			require.NoError(t, err)
			triples, err := CollectTriples(attempt.Result)
			require.NoError(t, err)
			require.Len(t, triples, 8)

			blanks := make(map[rdf.Term]bool)
			for _, tr := range triples {
				if rdf.IsBlank(tr.S) {
					blanks[tr.S] = true
				}
			}
			assert.Len(t, blanks, 4)
		})
	}
}

func TestDescribe(t *testing.T) {
	st := newFixtureStore(t, true)
	out, err := NewDispatcher(nil, nil).Evaluate(context.Background(),
		mustParse(t, `DESCRIBE ?s WHERE { ?s ex:age 25 }`), st, defaultDataset(t, st))
	require.NoError(t, err)
	assert.Equal(t, "naive", out.Strategy)

	triples, err := CollectTriples(out.Result)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Triple{
		{S: bob, P: rdf.RDFType, O: person},
		{S: bob, P: name, O: rdf.NewLiteral("Bob")},
		{S: bob, P: age, O: integer("25")},
	}, triples)
}

func TestDatasetMergesDefaultGraphs(t *testing.T) {
	st := newFixtureStore(t, true)
	ds := store.NewDataset([]rdf.IRI{g1, g2, g1}, nil)
	text := `SELECT ?m WHERE { ?s ex:email ?m }`

	for _, s := range []Strategy{NewPlanner(), NewNaive()} {
		got := evalBindings(t, s, st, ds, text)
		assert.Equal(t, []string{"m=<mailto:alice@example.org>", "m=<mailto:bob@example.org>"}, canonical(got), s.Name())
	}
}

func TestGraphRangesOverNamedGraphs(t *testing.T) {
	st := newFixtureStore(t, true)
	ds := store.NewDataset([]rdf.IRI{rdf.DefaultGraph}, []rdf.IRI{g2})
	text := `SELECT ?g ?m WHERE { GRAPH ?g { ?s ex:email ?m } }`

	for _, s := range []Strategy{NewPlanner(), NewNaive()} {
		got := evalBindings(t, s, st, ds, text)
		assert.Equal(t, []Binding{{"g": g2, "m": rdf.IRI("mailto:bob@example.org")}}, got, s.Name())
	}
}

func TestResultConsumedOnce(t *testing.T) {
	res := SliceBindings([]string{"x"}, []Binding{{"x": alice}})
	first, err := CollectBindings(res)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := CollectBindings(res)
	assert.ErrorIs(t, err, ErrConsumed)
	assert.Empty(t, second)
}
