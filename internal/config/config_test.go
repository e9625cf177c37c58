package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), "0.0.0.0:8080")
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Store.Type = %q, want memory", cfg.Store.Type)
	}
	if cfg.ServiceDescription.GraphLimit <= 0 {
		t.Error("GraphLimit should be positive")
	}
	if !cfg.Compression.Enabled {
		t.Error("Compression should be enabled by default")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", cfg.Metrics.Path)
	}
	if cfg.Logging.Format != "human" || cfg.Logging.Level != "info" {
		t.Errorf("Logging = %+v, want human/info", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr bool
	}{
		{"defaults", func(*Config) {}, "", false},
		{"unsupported version", func(c *Config) { c.Version = 2 }, "version", true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port", true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port", true},
		{"unknown store", func(c *Config) { c.Store.Type = "oxigraph" }, "store.type", true},
		{"sqlite without path", func(c *Config) { c.Store.Type = "sqlite" }, "store.path", true},
		{"sqlite with path", func(c *Config) { c.Store.Type = "sqlite"; c.Store.Path = "data.db" }, "", false},
		{"named graph without file", func(c *Config) {
			c.Load.NamedGraphs = []NamedGraphFile{{Graph: "http://example.org/g"}}
		}, "load.namedGraphs[0]", true},
		{"negative graph limit", func(c *Config) { c.ServiceDescription.GraphLimit = -1 }, "serviceDescription.graphLimit", true},
		{"rate limit without burst", func(c *Config) { c.Limits.RequestsPerSecond = 5; c.Limits.Burst = 0 }, "limits.burst", true},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format", true},
		{"negative log backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.maxBackups", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr && err == nil {
				t.Fatal("Validate() should return error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate() returned unexpected error: %v", err)
			}
			if err != nil {
				cerr, ok := err.(*ConfigError)
				if !ok {
					t.Fatalf("Validate() error type = %T, want *ConfigError", err)
				}
				if cerr.Field != tt.field {
					t.Errorf("Field = %q, want %q", cerr.Field, tt.field)
				}
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{
		Field:   "version",
		Message: "unsupported version 99",
	}

	got := err.Error()
	want := "config error in field 'version': unsupported version 99"

	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLoad_Default(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d (default)", cfg.Version, CurrentVersion)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (default)", cfg.Server.Port)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, ".sparqld")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create .sparqld dir: %v", err)
	}

	configContent := `{
		"version": 1,
		"server": {"port": 9000},
		"store": {"type": "sqlite", "path": "quads.db", "languageAware": true},
		"load": {
			"defaultGraphFiles": ["base.nt"],
			"namedGraphs": [{"graph": "http://Example.org/G", "file": "g.nt"}]
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "sparqld.json"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(tmpDir, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want default 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Store.Type != "sqlite" || cfg.Store.Path != "quads.db" || !cfg.Store.LanguageAware {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if len(cfg.Load.DefaultGraphFiles) != 1 || cfg.Load.DefaultGraphFiles[0] != "base.nt" {
		t.Errorf("DefaultGraphFiles = %v", cfg.Load.DefaultGraphFiles)
	}
	if len(cfg.Load.NamedGraphs) != 1 || cfg.Load.NamedGraphs[0].Graph != "http://Example.org/G" {
		t.Errorf("NamedGraphs = %+v, graph IRI case must be preserved", cfg.Load.NamedGraphs)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "/nonexistent/sparqld.yaml")
	if err == nil {
		t.Error("Load() should return error for a missing explicit config file")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SPARQLD_SERVER_PORT", "9191")
	t.Setenv("SPARQLD_LOGGING_LEVEL", "debug")

	cfg, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191 (from env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug (from env override)", cfg.Logging.Level)
	}
}

func TestConfig_Save(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.ServiceDescription.GraphLimit = 42

	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	configPath := filepath.Join(tmpDir, ".sparqld", "sparqld.json")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	loaded, err := Load(tmpDir, "")
	if err != nil {
		t.Fatalf("Load() after save error = %v", err)
	}

	if loaded.ServiceDescription.GraphLimit != 42 {
		t.Errorf("Loaded GraphLimit = %d, want 42", loaded.ServiceDescription.GraphLimit)
	}
}
