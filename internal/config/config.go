package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the only config schema version this build reads.
const CurrentVersion = 1

// Config represents the complete sparqld configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Server             ServerConfig             `json:"server" mapstructure:"server"`
	Store              StoreConfig              `json:"store" mapstructure:"store"`
	Load               LoadConfig               `json:"load" mapstructure:"load"`
	ServiceDescription ServiceDescriptionConfig `json:"serviceDescription" mapstructure:"serviceDescription"`
	Limits             LimitsConfig             `json:"limits" mapstructure:"limits"`
	Compression        CompressionConfig        `json:"compression" mapstructure:"compression"`
	Metrics            MetricsConfig            `json:"metrics" mapstructure:"metrics"`
	Logging            LoggingConfig            `json:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Host                string     `json:"host" mapstructure:"host"`
	Port                int        `json:"port" mapstructure:"port"`
	ReadTimeoutSeconds  int        `json:"readTimeoutSeconds" mapstructure:"readTimeoutSeconds"`
	WriteTimeoutSeconds int        `json:"writeTimeoutSeconds" mapstructure:"writeTimeoutSeconds"`
	ShutdownTimeoutSecs int        `json:"shutdownTimeoutSeconds" mapstructure:"shutdownTimeoutSeconds"`
	MaxBodyBytes        int64      `json:"maxBodyBytes" mapstructure:"maxBodyBytes"`
	CORS                CORSConfig `json:"cors" mapstructure:"cors"`
}

// CORSConfig controls the CORS middleware
type CORSConfig struct {
	Enabled        bool     `json:"enabled" mapstructure:"enabled"`
	AllowedOrigins []string `json:"allowedOrigins" mapstructure:"allowedOrigins"`
}

// StoreConfig selects and configures the quad store
type StoreConfig struct {
	Type          string `json:"type" mapstructure:"type"` // memory | sqlite
	Path          string `json:"path" mapstructure:"path"`
	LanguageAware bool   `json:"languageAware" mapstructure:"languageAware"`
}

// LoadConfig lists data files loaded into the store at startup
type LoadConfig struct {
	DefaultGraphFiles []string         `json:"defaultGraphFiles" mapstructure:"defaultGraphFiles"`
	NamedGraphs       []NamedGraphFile `json:"namedGraphs" mapstructure:"namedGraphs"`
	Manifest          string           `json:"manifest" mapstructure:"manifest"`
}

// NamedGraphFile binds a data file to a named graph IRI.
// Graph IRIs are kept in a list rather than a map because viper lowercases map keys.
type NamedGraphFile struct {
	Graph string `json:"graph" mapstructure:"graph" toml:"graph" yaml:"graph"`
	File  string `json:"file" mapstructure:"file" toml:"file" yaml:"file"`
}

// ServiceDescriptionConfig tunes the generated service description
type ServiceDescriptionConfig struct {
	GraphLimit         int      `json:"graphLimit" mapstructure:"graphLimit"`
	ExtensionFunctions []string `json:"extensionFunctions" mapstructure:"extensionFunctions"`
	Features           []string `json:"features" mapstructure:"features"`
}

// LimitsConfig contains request throttling settings
type LimitsConfig struct {
	RequestsPerSecond float64 `json:"requestsPerSecond" mapstructure:"requestsPerSecond"` // 0 disables
	Burst             int     `json:"burst" mapstructure:"burst"`
}

// CompressionConfig toggles gzip response compression
type CompressionConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"` // json | human
	Level      string `json:"level" mapstructure:"level"`   // debug | info | warn | error
	File       string `json:"file,omitempty" mapstructure:"file"`
	MaxSize    string `json:"maxSize,omitempty" mapstructure:"maxSize"` // "10MB"; empty disables rotation
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 60,
			ShutdownTimeoutSecs: 10,
			MaxBodyBytes:        1 << 20,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
			},
		},
		Store: StoreConfig{
			Type: "memory",
		},
		ServiceDescription: ServiceDescriptionConfig{
			GraphLimit: 100,
		},
		Limits: LimitsConfig{
			RequestsPerSecond: 0,
			Burst:             20,
		},
		Compression: CompressionConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxBackups: 3,
		},
	}
}

// Load reads configuration from configFile, or from sparqld.{json,yaml,toml}
// under root/.sparqld when configFile is empty. SPARQLD_* environment
// variables override file values (SPARQLD_SERVER_PORT=9090).
func Load(root, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("SPARQLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sparqld")
		v.AddConfigPath(filepath.Join(root, ".sparqld"))
		v.AddConfigPath(root)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file falls back to defaults plus environment
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.readTimeoutSeconds", d.Server.ReadTimeoutSeconds)
	v.SetDefault("server.writeTimeoutSeconds", d.Server.WriteTimeoutSeconds)
	v.SetDefault("server.shutdownTimeoutSeconds", d.Server.ShutdownTimeoutSecs)
	v.SetDefault("server.maxBodyBytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.cors.enabled", d.Server.CORS.Enabled)
	v.SetDefault("server.cors.allowedOrigins", d.Server.CORS.AllowedOrigins)

	v.SetDefault("store.type", d.Store.Type)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.languageAware", d.Store.LanguageAware)

	v.SetDefault("load.manifest", d.Load.Manifest)

	v.SetDefault("serviceDescription.graphLimit", d.ServiceDescription.GraphLimit)

	v.SetDefault("limits.requestsPerSecond", d.Limits.RequestsPerSecond)
	v.SetDefault("limits.burst", d.Limits.Burst)

	v.SetDefault("compression.enabled", d.Compression.Enabled)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// Save writes the configuration to .sparqld/sparqld.json under root
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".sparqld")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "sparqld.json"), data, 0644)
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: fmt.Sprintf("port %d out of range", c.Server.Port)}
	}
	switch c.Store.Type {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return &ConfigError{Field: "store.path", Message: "sqlite store requires a path"}
		}
	default:
		return &ConfigError{Field: "store.type", Message: fmt.Sprintf("unknown store type %q", c.Store.Type)}
	}
	for i, ng := range c.Load.NamedGraphs {
		if ng.Graph == "" || ng.File == "" {
			return &ConfigError{Field: fmt.Sprintf("load.namedGraphs[%d]", i), Message: "graph and file are required"}
		}
	}
	if c.ServiceDescription.GraphLimit < 0 {
		return &ConfigError{Field: "serviceDescription.graphLimit", Message: "must not be negative"}
	}
	if c.Limits.RequestsPerSecond < 0 {
		return &ConfigError{Field: "limits.requestsPerSecond", Message: "must not be negative"}
	}
	if c.Limits.RequestsPerSecond > 0 && c.Limits.Burst < 1 {
		return &ConfigError{Field: "limits.burst", Message: "must be at least 1 when rate limiting is enabled"}
	}
	switch c.Logging.Format {
	case "json", "human":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	if c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging.maxBackups", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
