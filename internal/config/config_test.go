package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every XDG lookup at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, k := range []string{"HEMIN_INDEX_PATH", "HEMIN_CATALOG_PATH", "HEMIN_SHARD", "HEMIN_WORKERS",
		"HEMIN_CRAWL_WEBSITES", "HEMIN_SERVER_ADDR", "HEMIN_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestNewConfig_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg := NewConfig()

	assert.Equal(t, filepath.Join(dir, "data", "hemin", "index"), cfg.Index.Path)
	assert.Equal(t, filepath.Join(dir, "data", "hemin", "catalog.db"), cfg.Catalog.Path)
	assert.Equal(t, 1, cfg.IDs.Shard)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.IngestDebounce())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	// Given: user config, project config and env all set
	dir := isolate(t)
	userPath := filepath.Join(dir, "config", "hemin", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0o755))
	require.NoError(t, os.WriteFile(userPath, []byte("ids:\n  shard: 3\ningest:\n  workers: 2\n"), 0o644))

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".hemin.yaml"),
		[]byte("ingest:\n  workers: 8\nfetch:\n  crawl_websites: true\n"), 0o644))

	t.Setenv("HEMIN_LOG_LEVEL", "debug")

	// When: loading
	cfg, err := Load(project)

	// Then: each layer wins over the previous
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.IDs.Shard)
	assert.Equal(t, 8, cfg.Ingest.Workers)
	assert.True(t, cfg.Fetch.CrawlWebsites)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".hemin.yml"), []byte("server:\n  addr: \":9000\"\n"), 0o644))

	cfg, err := Load(project)

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".hemin.yaml"), []byte("ids: [unclosed"), 0o644))

	_, err := Load(project)

	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HEMIN_INDEX_PATH", "/tmp/idx")
	t.Setenv("HEMIN_CATALOG_PATH", ":memory:")
	t.Setenv("HEMIN_SHARD", "9")
	t.Setenv("HEMIN_WORKERS", "16")
	t.Setenv("HEMIN_CRAWL_WEBSITES", "1")
	t.Setenv("HEMIN_SERVER_ADDR", ":7070")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "/tmp/idx", cfg.Index.Path)
	assert.Equal(t, ":memory:", cfg.Catalog.Path)
	assert.Equal(t, 9, cfg.IDs.Shard)
	assert.Equal(t, 16, cfg.Ingest.Workers)
	assert.True(t, cfg.Fetch.CrawlWebsites)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative shard", func(c *Config) { c.IDs.Shard = -1 }},
		{"negative cache", func(c *Config) { c.Index.ResultCacheSize = -5 }},
		{"empty catalog", func(c *Config) { c.Catalog.Path = "" }},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }},
		{"negative retries", func(c *Config) { c.Fetch.Retries = -1 }},
		{"bad timeout", func(c *Config) { c.Fetch.Timeout = "soon" }},
		{"bad debounce", func(c *Config) { c.Ingest.Debounce = "1 parsec" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWriteYAML_RoundTripsThroughLoadFile(t *testing.T) {
	isolate(t)
	cfg := NewConfig()
	cfg.IDs.Shard = 42
	cfg.Index.Path = ""

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.IDs.Shard)
}

func TestGetUserConfigPath(t *testing.T) {
	dir := isolate(t)

	assert.Equal(t, filepath.Join(dir, "config", "hemin", "config.yaml"), GetUserConfigPath())
	assert.False(t, UserConfigExists())
}
