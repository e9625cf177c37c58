// Package store defines the quad-store capability interface the protocol
// layer and query engine depend on, with in-memory, SQLite-backed and
// language-filtering implementations.
package store

import (
	"context"
	"sort"
	"time"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
)

// ErrNoVersion is returned by GraphVersion when the store does not track a
// modification time for the graph.
var ErrNoVersion = errors.New("graph version not tracked")

// Dataset is the set of graphs a query is evaluated against. Order is
// preserved and duplicates are allowed. The zero value is the empty
// (unspecified) dataset.
type Dataset struct {
	DefaultGraphs []rdf.IRI
	NamedGraphs   []rdf.IRI
}

// NewDataset copies the given graph lists into a new Dataset.
func NewDataset(defaultGraphs, namedGraphs []rdf.IRI) Dataset {
	return Dataset{
		DefaultGraphs: append([]rdf.IRI(nil), defaultGraphs...),
		NamedGraphs:   append([]rdf.IRI(nil), namedGraphs...),
	}
}

// IsEmpty reports whether the dataset names no graphs at all.
func (d Dataset) IsEmpty() bool {
	return len(d.DefaultGraphs) == 0 && len(d.NamedGraphs) == 0
}

// QuadPattern selects quads. A nil component matches anything. G, when set,
// is a graph IRI; unlabelled data lives in the store's default graph.
type QuadPattern struct {
	S, P, O, G rdf.Term
}

// Matches reports whether q satisfies the pattern.
func (p QuadPattern) Matches(q rdf.Quad) bool {
	return (p.S == nil || p.S == q.S) &&
		(p.P == nil || p.P == q.P) &&
		(p.O == nil || p.O == q.O) &&
		(p.G == nil || p.G == q.G)
}

// QuadStore is the read capability every store implementation provides.
// Implementations must be safe for concurrent readers.
type QuadStore interface {
	// DefaultDataset is the dataset used when a request names no graphs.
	// It is never empty.
	DefaultDataset(ctx context.Context) (Dataset, error)
	// Graphs lists graph names in first-insertion order.
	Graphs(ctx context.Context) ([]rdf.IRI, error)
	// Match returns the quads matching p in insertion order.
	Match(ctx context.Context, p QuadPattern) ([]rdf.Quad, error)
	// Count returns the number of quads matching p.
	Count(ctx context.Context, p QuadPattern) (int64, error)
	// GraphVersion returns the last modification time of graph, or ErrNoVersion.
	GraphVersion(ctx context.Context, graph rdf.IRI) (time.Time, error)
	// Prefixes returns the namespace prefixes declared for the data.
	Prefixes(ctx context.Context) (map[string]string, error)
}

// MutableStore is a QuadStore that accepts data.
type MutableStore interface {
	QuadStore
	// Load adds quads, assigning unlabelled quads to rdf.DefaultGraph. Every
	// graph touched is stamped with version unless version is zero.
	Load(ctx context.Context, version time.Time, quads []rdf.Quad) error
	// SetPrefix declares a namespace prefix.
	SetPrefix(ctx context.Context, prefix, namespace string) error
}

// defaultDatasetOf picks rdf.DefaultGraph when present, otherwise the first
// graph, otherwise rdf.DefaultGraph so the dataset is never empty.
func defaultDatasetOf(graphs []rdf.IRI) Dataset {
	g := rdf.DefaultGraph
	for _, name := range graphs {
		if name == rdf.DefaultGraph {
			return Dataset{DefaultGraphs: []rdf.IRI{g}}
		}
	}
	if len(graphs) > 0 {
		g = graphs[0]
	}
	return Dataset{DefaultGraphs: []rdf.IRI{g}}
}

func errInvalidGraph(t rdf.Term) error {
	return errors.Newf("graph name must be an IRI, got %s", t)
}

// normalizeGraph places unlabelled quads in the default graph.
func normalizeGraph(q rdf.Quad) rdf.Quad {
	if q.G == nil {
		q.G = rdf.DefaultGraph
	}
	return q
}

// sortedKeys returns the keys of a prefix map in lexical order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
