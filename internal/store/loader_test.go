package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparqld/internal/rdf"
)

func writeData(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	version := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	nt := writeData(t, "people.nt", `<http://example.org/a> <http://example.org/name> "Alice" .
# comment
<http://example.org/b> <http://example.org/name> "Bob"@en .
`)
	nq := writeData(t, "graphs.nq", `<http://example.org/a> <http://example.org/knows> <http://example.org/b> <http://example.org/g1> .
<http://example.org/b> <http://example.org/knows> <http://example.org/a> .
`)

	st := NewMemoryStore()

	n, err := LoadFile(ctx, st, nt, graphG2, version)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = LoadFile(ctx, st, nq, "", version)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	graphs, err := st.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rdf.IRI{graphG2, graphG1, rdf.DefaultGraph}, graphs)
}

func TestLoadFileErrors(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	_, err := LoadFile(ctx, st, writeData(t, "data.ttl", ""), "", time.Time{})
	assert.Error(t, err, "unsupported extension")

	_, err = LoadFile(ctx, st, filepath.Join(t.TempDir(), "missing.nt"), "", time.Time{})
	assert.Error(t, err)

	bad := writeData(t, "bad.nt", "<http://example.org/a> <http://example.org/p> .\n")
	_, err = LoadFile(ctx, st, bad, "", time.Time{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad.nt"))
}

func TestLoadReaderBatches(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < loadBatchSize+10; i++ {
		fmt.Fprintf(&sb, "<http://example.org/s> <http://example.org/p> \"v%d\" .\n", i)
	}
	st := NewMemoryStore()
	n, err := LoadReader(context.Background(), st, rdf.NewReader(strings.NewReader(sb.String()), rdf.FormatNTriples), "", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, loadBatchSize+10, n)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	loadedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	st := NewMemoryStore()
	require.NoError(t, st.Load(ctx, loadedAt, fixture()))
	require.NoError(t, st.SetPrefix(ctx, "ex", "http://example.org/"))
	require.NoError(t, st.SetPrefix(ctx, "dc", "http://purl.org/dc/terms/"))

	s, err := Summarize(ctx, st)
	require.NoError(t, err)
	assert.EqualValues(t, 5, s.Quads)
	assert.True(t, loadedAt.Equal(s.Version))
	require.Len(t, s.Graphs, 3)
	assert.Equal(t, GraphSummary{Name: graphG1, Triples: 2, Version: loadedAt}, s.Graphs[1])
	assert.Equal(t, []string{"dc: http://purl.org/dc/terms/", "ex: http://example.org/"}, s.Prefixes)
}
