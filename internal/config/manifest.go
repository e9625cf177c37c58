package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Manifest describes a data set to load: default-graph files, named graphs
// and namespace prefixes. It is read from TOML or YAML.
//
//	default_graph = ["base.nt"]
//	[[named_graphs]]
//	graph = "http://example.org/people"
//	file  = "people.nq"
//	[prefixes]
//	foaf = "http://xmlns.com/foaf/0.1/"
type Manifest struct {
	DefaultGraph []string          `toml:"default_graph" yaml:"default_graph"`
	NamedGraphs  []NamedGraphFile  `toml:"named_graphs" yaml:"named_graphs"`
	Prefixes     map[string]string `toml:"prefixes" yaml:"prefixes"`
}

// LoadManifest reads a manifest and resolves relative file paths against
// the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest extension %q", ext)
	}

	base := filepath.Dir(path)
	for i, f := range m.DefaultGraph {
		m.DefaultGraph[i] = resolve(base, f)
	}
	for i := range m.NamedGraphs {
		if m.NamedGraphs[i].Graph == "" {
			return nil, fmt.Errorf("%s: named_graphs[%d] has no graph IRI", path, i)
		}
		m.NamedGraphs[i].File = resolve(base, m.NamedGraphs[i].File)
	}
	return &m, nil
}

// Merge folds the manifest into the load section, manifest entries last.
func (m *Manifest) Merge(l *LoadConfig) {
	l.DefaultGraphFiles = append(l.DefaultGraphFiles, m.DefaultGraph...)
	l.NamedGraphs = append(l.NamedGraphs, m.NamedGraphs...)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
