package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvCorpusRoot, EnvDatabasePath, EnvOutputDir, EnvPort, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 500, cfg.Indexer.BatchSize)
	assert.Equal(t, 3, cfg.Indexer.MaxBatchAttempts)
	assert.Contains(t, cfg.Indexer.SupportedExtensions, ".md")
	assert.True(t, filepath.IsAbs(cfg.Database.Path))
	assert.NotContains(t, cfg.Database.Path, "~")
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
corpus:
  root_path: ` + dir + `
database:
  path: ` + filepath.Join(dir, "db.sqlite") + `
server:
  port: 8081
  index_interval: 15m
indexer:
  batch_size: 50
  supported_extensions: [".pdf"]
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Corpus.RootPath)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Server.IndexInterval)
	assert.Equal(t, 50, cfg.Indexer.BatchSize)
	assert.Equal(t, []string{".pdf"}, cfg.Indexer.SupportedExtensions)
	assert.Equal(t, 3, cfg.Indexer.MaxBatchAttempts, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvCorpusRoot, dir)
	t.Setenv(EnvDatabasePath, filepath.Join(dir, "x.db"))
	t.Setenv(EnvPort, "7001")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Corpus.RootPath)
	assert.Equal(t, filepath.Join(dir, "x.db"), cfg.Database.Path)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "x.db")+".index.lock", cfg.LockPath())
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "malformed yaml", content: "server: [unclosed"},
		{name: "bad port env", env: map[string]string{EnvPort: "abc"}},
		{name: "bad batch size", content: "indexer:\n  batch_size: 0\n"},
		{name: "bad pattern", content: "indexer:\n  skip_patterns: [\"[\"]\n"},
		{name: "bad format", content: "consolidation:\n  default_format: pdf\n"},
		{name: "bad log level", content: "log_level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Corpus.RootPath = dir
	cfg.Server.IndexInterval = time.Hour
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, loaded.Server.IndexInterval)
	assert.Equal(t, dir, loaded.Corpus.RootPath)
}

func TestIndexerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Corpus.RootPath = "/srv/corpus"
	cfg.Database.Path = "/var/lib/kcm/corpus.db"
	cfg.Indexer.HashWorkers = 4
	cfg.Server.IndexInterval = 30 * time.Minute

	ic := cfg.IndexerConfig(true)
	assert.Equal(t, "/srv/corpus", ic.Scan.Root)
	assert.Equal(t, cfg.Indexer.SupportedExtensions, ic.Scan.Extensions)
	assert.Equal(t, cfg.Indexer.SkipHidden, ic.Scan.SkipHidden)
	assert.Equal(t, 4, ic.HashWorkers)
	assert.Equal(t, 500, ic.BatchSize)
	assert.Equal(t, "/var/lib/kcm/corpus.db.index.lock", ic.LockPath)
	assert.Equal(t, 30*time.Minute, ic.Interval)

	assert.Zero(t, cfg.IndexerConfig(false).Interval)
}
