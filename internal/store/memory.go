package store

import (
	"context"
	"sync"
	"time"

	"sparqld/internal/rdf"
)

// MemoryStore keeps quads in memory with per-graph and per-predicate indexes.
type MemoryStore struct {
	mu       sync.RWMutex
	quads    []rdf.Quad
	seen     map[rdf.Quad]struct{}
	byGraph  map[rdf.Term][]int
	byPred   map[rdf.Term][]int
	graphs   []rdf.IRI
	versions map[rdf.IRI]time.Time
	prefixes map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seen:     make(map[rdf.Quad]struct{}),
		byGraph:  make(map[rdf.Term][]int),
		byPred:   make(map[rdf.Term][]int),
		versions: make(map[rdf.IRI]time.Time),
		prefixes: make(map[string]string),
	}
}

// Load implements MutableStore. Duplicate quads are ignored.
func (m *MemoryStore) Load(_ context.Context, version time.Time, quads []rdf.Quad) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, q := range quads {
		q = normalizeGraph(q)
		g, ok := q.G.(rdf.IRI)
		if !ok {
			return errInvalidGraph(q.G)
		}
		if _, known := m.byGraph[g]; !known {
			m.graphs = append(m.graphs, g)
			m.byGraph[g] = nil
		}
		if !version.IsZero() {
			m.versions[g] = version
		}
		if _, dup := m.seen[q]; dup {
			continue
		}
		m.seen[q] = struct{}{}
		idx := len(m.quads)
		m.quads = append(m.quads, q)
		m.byGraph[g] = append(m.byGraph[g], idx)
		m.byPred[q.P] = append(m.byPred[q.P], idx)
	}
	return nil
}

// SetPrefix implements MutableStore.
func (m *MemoryStore) SetPrefix(_ context.Context, prefix, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixes[prefix] = namespace
	return nil
}

// DefaultDataset implements QuadStore.
func (m *MemoryStore) DefaultDataset(ctx context.Context) (Dataset, error) {
	graphs, err := m.Graphs(ctx)
	if err != nil {
		return Dataset{}, err
	}
	return defaultDatasetOf(graphs), nil
}

// Graphs implements QuadStore.
func (m *MemoryStore) Graphs(_ context.Context) ([]rdf.IRI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]rdf.IRI(nil), m.graphs...), nil
}

// Match implements QuadStore.
func (m *MemoryStore) Match(_ context.Context, p QuadPattern) ([]rdf.Quad, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []rdf.Quad
	m.scan(p, func(q rdf.Quad) {
		out = append(out, q)
	})
	return out, nil
}

// Count implements QuadStore.
func (m *MemoryStore) Count(_ context.Context, p QuadPattern) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p.S == nil && p.P == nil && p.O == nil {
		if p.G == nil {
			return int64(len(m.quads)), nil
		}
		return int64(len(m.byGraph[p.G])), nil
	}
	var n int64
	m.scan(p, func(rdf.Quad) { n++ })
	return n, nil
}

// scan visits matching quads in insertion order using the narrowest index.
func (m *MemoryStore) scan(p QuadPattern, visit func(rdf.Quad)) {
	var candidates []int
	indexed := false
	if p.G != nil {
		candidates, indexed = m.byGraph[p.G], true
	}
	if p.P != nil {
		byPred := m.byPred[p.P]
		if !indexed || len(byPred) < len(candidates) {
			candidates, indexed = byPred, true
		}
	}

	if !indexed {
		for _, q := range m.quads {
			if p.Matches(q) {
				visit(q)
			}
		}
		return
	}
	for _, idx := range candidates {
		if q := m.quads[idx]; p.Matches(q) {
			visit(q)
		}
	}
}

// GraphVersion implements QuadStore.
func (m *MemoryStore) GraphVersion(_ context.Context, graph rdf.IRI) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.versions[graph]; ok {
		return v, nil
	}
	return time.Time{}, ErrNoVersion
}

// Prefixes implements QuadStore.
func (m *MemoryStore) Prefixes(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.prefixes))
	for k, v := range m.prefixes {
		out[k] = v
	}
	return out, nil
}
