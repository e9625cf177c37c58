package store

import (
	"context"
	"io"
	"os"
	"time"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
)

// loadBatchSize bounds the number of quads committed per Load call.
const loadBatchSize = 5000

// LoadFile reads an N-Triples or N-Quads file into st. When graph is set,
// every statement goes to that graph; otherwise N-Quads graph labels are
// kept and unlabelled statements go to the default graph. It returns the
// number of statements read.
func LoadFile(ctx context.Context, st MutableStore, path string, graph rdf.IRI, version time.Time) (int, error) {
	format, err := rdf.FormatFromPath(path)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	n, err := LoadReader(ctx, st, rdf.NewReader(f, format), graph, version)
	if err != nil {
		return n, errors.Wrapf(err, "failed to load %s", path)
	}
	return n, nil
}

// LoadReader drains r into st in batches.
func LoadReader(ctx context.Context, st MutableStore, r *rdf.Reader, graph rdf.IRI, version time.Time) (int, error) {
	batch := make([]rdf.Quad, 0, loadBatchSize)
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := st.Load(ctx, version, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		q, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}
		if graph != "" {
			q.G = graph
		}
		batch = append(batch, q)
		if len(batch) == loadBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	return total, flush()
}

// GraphSummary describes one graph of a store.
type GraphSummary struct {
	Name    rdf.IRI
	Triples int64
	Version time.Time // zero when untracked
}

// Summary describes a store's contents.
type Summary struct {
	Quads    int64
	Version  time.Time // latest graph version
	Graphs   []GraphSummary
	Prefixes []string // "prefix: namespace" in prefix order
}

// Summarize counts the quads of st per graph.
func Summarize(ctx context.Context, st QuadStore) (*Summary, error) {
	total, err := st.Count(ctx, QuadPattern{})
	if err != nil {
		return nil, err
	}
	graphs, err := st.Graphs(ctx)
	if err != nil {
		return nil, err
	}

	s := &Summary{Quads: total}
	for _, g := range graphs {
		n, err := st.Count(ctx, QuadPattern{G: g})
		if err != nil {
			return nil, err
		}
		gs := GraphSummary{Name: g, Triples: n}
		v, err := st.GraphVersion(ctx, g)
		switch {
		case err == nil:
			gs.Version = v
			if v.After(s.Version) {
				s.Version = v
			}
		case !errors.Is(err, ErrNoVersion):
			return nil, err
		}
		s.Graphs = append(s.Graphs, gs)
	}

	prefixes, err := st.Prefixes(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range sortedKeys(prefixes) {
		s.Prefixes = append(s.Prefixes, k+": "+prefixes[k])
	}
	return s, nil
}
