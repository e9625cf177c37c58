// Package sd builds the SPARQL service description served when a request
// carries no query.
package sd

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
	"sparqld/internal/store"
)

// countConcurrency bounds the per-graph Count calls issued at once.
const countConcurrency = 4

// Options lists the endpoint capabilities to advertise.
type Options struct {
	SupportedLanguages []rdf.IRI
	ResultFormats      []rdf.IRI
	ExtensionFunctions []string
	Features           []string
	// GraphLimit omits graph descriptions when the store holds more graphs.
	// Zero means no limit.
	GraphLimit int
}

// GraphDescription is a named graph and its size.
type GraphDescription struct {
	Name    rdf.IRI
	Triples int64
}

// Description is a service description ready to be written as Turtle.
type Description struct {
	SupportedLanguages []rdf.IRI
	ResultFormats      []rdf.IRI
	ExtensionFunctions []string
	Features           []string
	Dataset            store.Dataset
	// DefaultGraphTriples is nil when the size is unknown or omitted.
	DefaultGraphTriples *int64
	Graphs              []GraphDescription
	Prefixes            map[string]string
}

// Build collects the description of st. Per-graph triple counts are
// gathered concurrently and skipped entirely past opts.GraphLimit.
func Build(ctx context.Context, st store.QuadStore, opts Options) (*Description, error) {
	d := &Description{
		SupportedLanguages: opts.SupportedLanguages,
		ResultFormats:      opts.ResultFormats,
		ExtensionFunctions: opts.ExtensionFunctions,
		Features:           opts.Features,
	}

	graphs, err := st.Graphs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list graphs")
	}
	ds, err := st.DefaultDataset(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve default dataset")
	}
	d.Dataset = ds
	if d.Prefixes, err = st.Prefixes(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to read prefixes")
	}

	if len(graphs) == 0 || (opts.GraphLimit > 0 && len(graphs) > opts.GraphLimit) {
		return d, nil
	}

	var named []rdf.IRI
	for _, g := range graphs {
		if !slices.Contains(ds.DefaultGraphs, g) {
			named = append(named, g)
		}
	}

	defaultCounts := make([]int64, len(ds.DefaultGraphs))
	d.Graphs = make([]GraphDescription, len(named))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(countConcurrency)
	for i, name := range ds.DefaultGraphs {
		g.Go(func() error {
			n, err := st.Count(gctx, store.QuadPattern{G: name})
			if err != nil {
				return errors.Wrapf(err, "failed to count graph %s", name)
			}
			defaultCounts[i] = n
			return nil
		})
	}
	for i, name := range named {
		g.Go(func() error {
			n, err := st.Count(gctx, store.QuadPattern{G: name})
			if err != nil {
				return errors.Wrapf(err, "failed to count graph %s", name)
			}
			d.Graphs[i] = GraphDescription{Name: name, Triples: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int64
	for _, n := range defaultCounts {
		total += n
	}
	d.DefaultGraphTriples = &total
	return d, nil
}

// Turtle writes the description for the service at endpoint.
func (d *Description) Turtle(endpoint string) string {
	var sb strings.Builder
	sb.WriteString("@prefix sd: <" + rdf.NSSD + "> .\n")
	sb.WriteString("@prefix void: <" + rdf.NSVoID + "> .\n")
	sb.WriteString("@prefix sh: <" + rdf.NSSHACL + "> .\n")
	sb.WriteString("\n[] a sd:Service ;\n")
	fmt.Fprintf(&sb, "    sd:endpoint %s ;\n", rdf.IRI(endpoint))

	writeIRIList(&sb, "sd:supportedLanguage", d.SupportedLanguages)
	writeIRIList(&sb, "sd:resultFormat", d.ResultFormats)
	writeIRIList(&sb, "sd:extensionFunction", toIRIs(d.ExtensionFunctions))
	writeIRIList(&sb, "sd:feature", toIRIs(d.Features))

	sb.WriteString("    sd:defaultDataset [\n")
	sb.WriteString("        a sd:Dataset ;\n")
	sb.WriteString("        sd:defaultGraph [ a sd:Graph")
	if d.DefaultGraphTriples != nil {
		sb.WriteString(" ; void:triples " + strconv.FormatInt(*d.DefaultGraphTriples, 10))
	}
	sb.WriteString(" ] ;\n")
	for _, g := range d.Graphs {
		fmt.Fprintf(&sb, "        sd:namedGraph [ sd:name %s ; sd:graph [ a sd:Graph ; void:triples %d ] ] ;\n", g.Name, g.Triples)
	}
	sb.WriteString("    ] ;\n")

	if len(d.Prefixes) > 0 {
		sb.WriteString("    sh:declare")
		keys := make([]string, 0, len(d.Prefixes))
		for k := range d.Prefixes {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "\n        [ sh:prefix %s ; sh:namespace %s ]",
				rdf.NewLiteral(k), rdf.NewTypedLiteral(d.Prefixes[k], rdf.XSDAnyURI))
		}
		sb.WriteString(" ;\n")
	}

	sb.WriteString("\t.\n")
	return sb.String()
}

func writeIRIList(sb *strings.Builder, predicate string, iris []rdf.IRI) {
	if len(iris) == 0 {
		return
	}
	parts := make([]string, len(iris))
	for i, iri := range iris {
		parts[i] = iri.String()
	}
	fmt.Fprintf(sb, "    %s %s ;\n", predicate, strings.Join(parts, ", "))
}

func toIRIs(values []string) []rdf.IRI {
	out := make([]rdf.IRI, len(values))
	for i, v := range values {
		out[i] = rdf.IRI(v)
	}
	return out
}
