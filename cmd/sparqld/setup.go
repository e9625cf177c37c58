package main

import (
	"context"
	"os"
	"time"

	"sparqld/internal/config"
	"sparqld/internal/errors"
	"sparqld/internal/logging"
	"sparqld/internal/rdf"
	"sparqld/internal/results"
	"sparqld/internal/store"
)

// loadConfig reads and validates the configuration named by the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootFlag, configFlag)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger creates a logger from the logging section. When a log file is
// configured the returned func closes it.
func newLogger(cfg config.LoggingConfig) (*logging.Logger, func() error, error) {
	logFormat := logging.HumanFormat
	if cfg.Format == "json" {
		logFormat = logging.JSONFormat
	}
	lc := logging.Config{
		Format: logFormat,
		Level:  logging.ParseLevel(cfg.Level),
	}

	closeLog := func() error { return nil }
	if cfg.File != "" {
		rf, err := logging.OpenRotatingFile(cfg.File, logging.ParseSize(cfg.MaxSize), cfg.MaxBackups)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to open log file %s", cfg.File)
		}
		lc.Output = rf
		closeLog = rf.Close
	}
	return logging.NewLogger(lc), closeLog, nil
}

// openStore opens the configured store. The returned func releases it.
func openStore(cfg config.StoreConfig, logger *logging.Logger) (store.MutableStore, func() error, error) {
	switch cfg.Type {
	case "sqlite":
		st, err := store.OpenSQLStore(cfg.Path, logger)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to open store %s", cfg.Path)
		}
		return st, st.Close, nil
	default:
		return store.NewMemoryStore(), func() error { return nil }, nil
	}
}

// newRegistry returns the result formats the endpoint negotiates over.
func newRegistry() *results.Registry {
	registry := results.DefaultRegistry()
	registry.Register(results.HTMLSerializer{})
	return registry
}

// loadData loads the configured files, including those listed by the
// manifest, and declares the manifest's prefixes. Each graph is versioned
// with its file's modification time.
func loadData(ctx context.Context, st store.MutableStore, load config.LoadConfig, logger *logging.Logger) error {
	if load.Manifest != "" {
		m, err := config.LoadManifest(load.Manifest)
		if err != nil {
			return err
		}
		m.Merge(&load)
		for prefix, ns := range m.Prefixes {
			if err := st.SetPrefix(ctx, prefix, ns); err != nil {
				return errors.Wrapf(err, "failed to declare prefix %s", prefix)
			}
		}
	}

	for _, path := range load.DefaultGraphFiles {
		if err := loadFile(ctx, st, path, "", logger); err != nil {
			return err
		}
	}
	for _, ng := range load.NamedGraphs {
		if err := loadFile(ctx, st, ng.File, rdf.IRI(ng.Graph), logger); err != nil {
			return err
		}
	}
	return nil
}

func loadFile(ctx context.Context, st store.MutableStore, path string, graph rdf.IRI, logger *logging.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", path)
	}

	start := time.Now()
	n, err := store.LoadFile(ctx, st, path, graph, info.ModTime())
	if err != nil {
		return err
	}
	logger.Info("Loaded data file", map[string]interface{}{
		"file":       path,
		"graph":      string(graph),
		"statements": n,
		"duration":   time.Since(start).String(),
	})
	return nil
}
