package main

import (
	"net/url"

	"github.com/spf13/cobra"

	"sparqld/internal/config"
	"sparqld/internal/errors"
)

var (
	loadDB       string
	loadGraph    string
	loadManifest string
)

var loadCmd = &cobra.Command{
	Use:   "load [files...]",
	Short: "Bulk-load RDF files into a SQLite store",
	Long: `Load N-Triples or N-Quads files into a persistent SQLite store that
"sparqld serve" can open with store.type = sqlite.

Examples:
  sparqld load --db data.db people.nt
  sparqld load --db data.db --graph http://example.org/g1 g1.nt
  sparqld load --db data.db --manifest dataset.toml`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadDB, "db", "", "SQLite database path (default: store.path from config)")
	loadCmd.Flags().StringVar(&loadGraph, "graph", "", "Load every file into this named graph")
	loadCmd.Flags().StringVar(&loadManifest, "manifest", "", "TOML or YAML manifest listing files and prefixes")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if loadDB != "" {
		cfg.Store.Path = loadDB
	}
	if cfg.Store.Path == "" {
		return errors.New("no database path: pass --db or set store.path")
	}
	if len(args) == 0 && loadManifest == "" {
		return errors.New("nothing to load: pass files or --manifest")
	}
	cfg.Store.Type = "sqlite"

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = closeLog()
	}()
	st, closeStore, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	load := config.LoadConfig{Manifest: loadManifest}
	for _, path := range args {
		if loadGraph != "" {
			load.NamedGraphs = append(load.NamedGraphs, config.NamedGraphFile{Graph: loadGraph, File: path})
		} else {
			load.DefaultGraphFiles = append(load.DefaultGraphFiles, path)
		}
	}
	if loadGraph != "" {
		if u, err := url.Parse(loadGraph); err != nil || !u.IsAbs() {
			return errors.Newf("graph %q is not an absolute IRI", loadGraph)
		}
	}

	return loadData(cmd.Context(), st, load, logger)
}
