// Package config provides configuration for the vault query service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arkilian/vaultquery/internal/query/compiler"
	"github.com/arkilian/vaultquery/internal/typeindex"
	"github.com/arkilian/vaultquery/pkg/types"
)

// Config holds the configuration for the vault query service.
type Config struct {
	// DataDir is the base directory for the vault database
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Query service configuration
	Query QueryConfig `json:"query" yaml:"query"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log"`

	// Types lists the contract types known to the type index
	Types []typeindex.TypeDescriptor `json:"types" yaml:"types"`

	// Extensions lists the tables custom criteria may filter on
	Extensions []ExtensionConfig `json:"extensions" yaml:"extensions"`
}

// DatabaseConfig holds vault database configuration.
type DatabaseConfig struct {
	// Path is the sqlite database file (default: <data_dir>/vault.db)
	Path string `json:"path" yaml:"path"`

	// BusyTimeout is how long a writer waits for a lock
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`

	// MaxOpenConns bounds concurrent query sessions
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	// DefaultPageSize is used when a request does not set a page size
	DefaultPageSize int `json:"default_page_size" yaml:"default_page_size"`

	// MaxPageSize is the largest page a request may ask for
	MaxPageSize int `json:"max_page_size" yaml:"max_page_size"`

	// RootType is the supertype of every contract type
	RootType string `json:"root_type" yaml:"root_type"`

	// StatsWindow is how long predicate statistics are kept
	StatsWindow time.Duration `json:"stats_window" yaml:"stats_window"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the HTTP listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level" yaml:"level"`

	// Format is text or json
	Format string `json:"format" yaml:"format"`
}

// ExtensionConfig names an extension table and its queryable columns.
type ExtensionConfig struct {
	Table   string   `json:"table" yaml:"table"`
	Columns []string `json:"columns" yaml:"columns"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/vault",
		Database: DatabaseConfig{
			BusyTimeout:  5 * time.Second,
			MaxOpenConns: 4,
		},
		Query: QueryConfig{
			DefaultPageSize: types.DefaultPageSize,
			MaxPageSize:     types.MaxPageSize,
			RootType:        typeindex.DefaultRootType,
			StatsWindow:     time.Hour,
		},
		HTTP: HTTPConfig{
			Addr:         ":8081",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/vault"
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.DataDir, "vault.db")
	}
	if c.Query.RootType == "" {
		c.Query.RootType = typeindex.DefaultRootType
	}
	if c.Query.DefaultPageSize == 0 {
		c.Query.DefaultPageSize = types.DefaultPageSize
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" && c.DataDir == "" {
		return fmt.Errorf("database.path or data_dir is required")
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must not be negative, got %d", c.Database.MaxOpenConns)
	}
	if c.Query.MaxPageSize <= 0 {
		return fmt.Errorf("query.max_page_size must be positive, got %d", c.Query.MaxPageSize)
	}
	if c.Query.DefaultPageSize <= 0 || c.Query.DefaultPageSize > c.Query.MaxPageSize {
		return fmt.Errorf("query.default_page_size must be between 1 and %d, got %d", c.Query.MaxPageSize, c.Query.DefaultPageSize)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Types))
	for _, t := range c.Types {
		if t.Name == "" {
			return fmt.Errorf("types: entry without a name")
		}
		if seen[t.Name] {
			return fmt.Errorf("types: %q listed twice", t.Name)
		}
		seen[t.Name] = true
	}
	for _, e := range c.Extensions {
		if len(e.Columns) == 0 {
			return fmt.Errorf("extensions: table %q lists no columns", e.Table)
		}
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level: %s", l.Level)
	}
	return level, nil
}

// BuildRegistry returns a type registry holding the configured types.
func (c *Config) BuildRegistry() (*typeindex.Registry, error) {
	r := typeindex.NewRegistry(c.Query.RootType)
	for _, t := range c.Types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// BuildExtensions returns the registry of configured extension tables.
func (c *Config) BuildExtensions() (*compiler.ExtensionRegistry, error) {
	r := compiler.NewExtensionRegistry()
	for _, e := range c.Extensions {
		if err := r.Register(e.Table, e.Columns...); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the VAULT_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("VAULT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Database configuration
	if v := os.Getenv("VAULT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("VAULT_DATABASE_BUSY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Database.BusyTimeout = d
		}
	}
	if v := os.Getenv("VAULT_DATABASE_MAX_OPEN_CONNS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Database.MaxOpenConns)
	}

	// Query configuration
	if v := os.Getenv("VAULT_QUERY_DEFAULT_PAGE_SIZE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Query.DefaultPageSize)
	}
	if v := os.Getenv("VAULT_QUERY_MAX_PAGE_SIZE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Query.MaxPageSize)
	}
	if v := os.Getenv("VAULT_QUERY_ROOT_TYPE"); v != "" {
		cfg.Query.RootType = v
	}

	// HTTP configuration
	if v := os.Getenv("VAULT_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	// Log configuration
	if v := os.Getenv("VAULT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("VAULT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// EnsureDirectories creates the directory holding the database.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Dir(c.Database.Path)}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
