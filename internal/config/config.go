package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete hemin configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index" json:"index"`
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`
	IDs     IDsConfig     `yaml:"ids" json:"ids"`
	Fetch   FetchConfig   `yaml:"fetch" json:"fetch"`
	Ingest  IngestConfig  `yaml:"ingest" json:"ingest"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// IndexConfig configures the full-text index.
type IndexConfig struct {
	// Path is the on-disk index directory. Empty keeps the index in memory.
	Path string `yaml:"path" json:"path"`

	// ResultCacheSize is the number of search pages cached per refresh generation.
	// Zero disables the cache.
	ResultCacheSize int `yaml:"result_cache_size" json:"result_cache_size"`
}

// CatalogConfig configures the relational show/episode store.
type CatalogConfig struct {
	// Path is the sqlite database file. ":memory:" keeps it in memory.
	Path string `yaml:"path" json:"path"`
}

// IDsConfig configures external identifier generation.
type IDsConfig struct {
	// Shard distinguishes concurrently running generators.
	Shard int `yaml:"shard" json:"shard"`
}

// FetchConfig configures feed and website downloads.
type FetchConfig struct {
	Timeout   string `yaml:"timeout" json:"timeout"`
	Retries   int    `yaml:"retries" json:"retries"`
	// UserAgent overrides the default "hemin/<version>" agent.
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// CrawlWebsites downloads each show's website to fill website_data.
	CrawlWebsites bool `yaml:"crawl_websites" json:"crawl_websites"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	Workers  int    `yaml:"workers" json:"workers"`
	SpoolDir string `yaml:"spool_dir" json:"spool_dir"`
	Debounce string `yaml:"debounce" json:"debounce"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig returns a configuration with all defaults applied.
func NewConfig() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		Index: IndexConfig{
			Path:            filepath.Join(dataDir, "index"),
			ResultCacheSize: 256,
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(dataDir, "catalog.db"),
		},
		IDs: IDsConfig{
			Shard: 1,
		},
		Fetch: FetchConfig{
			Timeout: "30s",
			Retries: 3,
		},
		Ingest: IngestConfig{
			Workers:  4,
			SpoolDir: filepath.Join(dataDir, "spool"),
			Debounce: "500ms",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDataDir returns $XDG_DATA_HOME/hemin or ~/.local/share/hemin.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "hemin")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hemin")
	}
	return filepath.Join(home, ".local", "share", "hemin")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/hemin/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/hemin/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hemin", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "hemin", "config.yaml")
	}
	return filepath.Join(home, ".config", "hemin", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/hemin/config.yaml)
//  3. Project config (.hemin.yaml in dir)
//  4. Environment variables (HEMIN_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads defaults, then the given file, then env overrides.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromDir loads .hemin.yaml, or .hemin.yml as a fallback.
func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{".hemin.yaml", ".hemin.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML parses path and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Index.ResultCacheSize != 0 {
		c.Index.ResultCacheSize = other.Index.ResultCacheSize
	}
	if other.Catalog.Path != "" {
		c.Catalog.Path = other.Catalog.Path
	}
	if other.IDs.Shard != 0 {
		c.IDs.Shard = other.IDs.Shard
	}
	if other.Fetch.Timeout != "" {
		c.Fetch.Timeout = other.Fetch.Timeout
	}
	if other.Fetch.Retries != 0 {
		c.Fetch.Retries = other.Fetch.Retries
	}
	if other.Fetch.UserAgent != "" {
		c.Fetch.UserAgent = other.Fetch.UserAgent
	}
	if other.Fetch.CrawlWebsites {
		c.Fetch.CrawlWebsites = true
	}
	if other.Ingest.Workers != 0 {
		c.Ingest.Workers = other.Ingest.Workers
	}
	if other.Ingest.SpoolDir != "" {
		c.Ingest.SpoolDir = other.Ingest.SpoolDir
	}
	if other.Ingest.Debounce != "" {
		c.Ingest.Debounce = other.Ingest.Debounce
	}
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
}

// applyEnvOverrides applies HEMIN_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HEMIN_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("HEMIN_CATALOG_PATH"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("HEMIN_SHARD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IDs.Shard = n
		}
	}
	if v := os.Getenv("HEMIN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ingest.Workers = n
		}
	}
	if v := os.Getenv("HEMIN_CRAWL_WEBSITES"); v != "" {
		c.Fetch.CrawlWebsites = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("HEMIN_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("HEMIN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.IDs.Shard < 0 {
		return fmt.Errorf("ids.shard must be non-negative, got %d", c.IDs.Shard)
	}
	if c.Index.ResultCacheSize < 0 {
		return fmt.Errorf("index.result_cache_size must be non-negative, got %d", c.Index.ResultCacheSize)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path must not be empty")
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1, got %d", c.Ingest.Workers)
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries must be non-negative, got %d", c.Fetch.Retries)
	}
	if _, err := time.ParseDuration(c.Fetch.Timeout); err != nil {
		return fmt.Errorf("fetch.timeout is not a duration: %w", err)
	}
	if _, err := time.ParseDuration(c.Ingest.Debounce); err != nil {
		return fmt.Errorf("ingest.debounce is not a duration: %w", err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// FetchTimeout returns Fetch.Timeout parsed, or 30s if it does not parse.
func (c *Config) FetchTimeout() time.Duration {
	return parseDurationOr(c.Fetch.Timeout, 30*time.Second)
}

// IngestDebounce returns Ingest.Debounce parsed, or 500ms if it does not parse.
func (c *Config) IngestDebounce() time.Duration {
	return parseDurationOr(c.Ingest.Debounce, 500*time.Millisecond)
}

// WriteYAML writes the configuration to a YAML file, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
