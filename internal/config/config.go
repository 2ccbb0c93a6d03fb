package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"corpus-manager/internal/doctypes"
	"corpus-manager/internal/filelock"
	"corpus-manager/internal/indexer"
	"corpus-manager/internal/logging"
)

// Environment variables that override file values.
const (
	EnvCorpusRoot   = "KCM_CORPUS_ROOT"
	EnvDatabasePath = "KCM_DATABASE_PATH"
	EnvOutputDir    = "KCM_OUTPUT_DIR"
	EnvPort         = "KCM_PORT"
	EnvLogLevel     = "KCM_LOG_LEVEL"
)

// CorpusConfig locates the document tree.
type CorpusConfig struct {
	// RootPath is the directory that is indexed
	RootPath string `yaml:"root_path"`
}

// DatabaseConfig locates the index database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ConsolidationConfig controls export artifacts.
type ConsolidationConfig struct {
	// OutputDir receives consolidated documents
	OutputDir string `yaml:"output_dir"`

	// DefaultFormat is used when a request names none (markdown, json, text)
	DefaultFormat string `yaml:"default_format"`
}

// ServerConfig controls the HTTP server started by "serve".
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	MetricsPort     int    `yaml:"metrics_port"`
	MetricsEnabled  bool   `yaml:"metrics_enabled"`
	LogHealthChecks bool   `yaml:"log_health_checks"`

	// IndexInterval schedules periodic full runs; 0 disables them
	IndexInterval time.Duration `yaml:"index_interval"`
}

// IndexerConfig controls scanning and change detection.
type IndexerConfig struct {
	SkipHidden          bool     `yaml:"skip_hidden"`
	SkipPatterns        []string `yaml:"skip_patterns"`
	SupportedExtensions []string `yaml:"supported_extensions"`

	// HashWorkers bounds concurrent fingerprinting; 0 sizes from GOMAXPROCS
	HashWorkers int `yaml:"hash_workers"`

	BatchSize        int `yaml:"batch_size"`
	MaxBatchAttempts int `yaml:"max_batch_attempts"`
}

// Config is the complete application configuration.
type Config struct {
	Corpus        CorpusConfig        `yaml:"corpus"`
	Database      DatabaseConfig      `yaml:"database"`
	Consolidation ConsolidationConfig `yaml:"consolidation"`
	Server        ServerConfig        `yaml:"server"`
	Indexer       IndexerConfig       `yaml:"indexer"`

	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with default values. Paths under the user's
// home directory are left with a leading "~" until Expand runs.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			RootPath: ".",
		},
		Database: DatabaseConfig{
			Path: "~/.kcm/corpus.db",
		},
		Consolidation: ConsolidationConfig{
			OutputDir:     "~/.kcm/exports",
			DefaultFormat: "markdown",
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            5000,
			MetricsPort:     9090,
			MetricsEnabled:  true,
			LogHealthChecks: false,
			IndexInterval:   0,
		},
		Indexer: IndexerConfig{
			SkipHidden:          true,
			SkipPatterns:        append([]string(nil), doctypes.DefaultSkipPatterns...),
			SupportedExtensions: append([]string(nil), doctypes.DefaultExtensions...),
			HashWorkers:         0,
			BatchSize:           500,
			MaxBatchAttempts:    3,
		},
		LogLevel: "info",
	}
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".kcm", "config.yaml")
}

// LoadConfig loads configuration from path on top of the defaults, then
// applies environment overrides and expands paths.
// A missing file is not an error; a malformed one is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logging.Debug("Config file %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Expand(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvCorpusRoot); v != "" {
		c.Corpus.RootPath = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Consolidation.OutputDir = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Expand resolves "~" and makes every path absolute.
func (c *Config) Expand() error {
	for _, p := range []*string{&c.Corpus.RootPath, &c.Database.Path, &c.Consolidation.OutputDir} {
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", p, err)
	}
	return abs, nil
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if c.Corpus.RootPath == "" {
		return errors.New("corpus.root_path is required")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MetricsEnabled && (c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535) {
		return fmt.Errorf("server.metrics_port %d out of range", c.Server.MetricsPort)
	}
	if c.Indexer.BatchSize <= 0 {
		return fmt.Errorf("indexer.batch_size must be positive, got %d", c.Indexer.BatchSize)
	}
	if c.Indexer.MaxBatchAttempts <= 0 {
		return fmt.Errorf("indexer.max_batch_attempts must be positive, got %d", c.Indexer.MaxBatchAttempts)
	}
	if c.Indexer.HashWorkers < 0 {
		return fmt.Errorf("indexer.hash_workers must not be negative, got %d", c.Indexer.HashWorkers)
	}
	for _, p := range c.Indexer.SkipPatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid skip pattern %q: %w", p, err)
		}
	}
	switch c.Consolidation.DefaultFormat {
	case "markdown", "json", "text":
	default:
		return fmt.Errorf("consolidation.default_format %q must be markdown, json or text", c.Consolidation.DefaultFormat)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// LockPath is the advisory lock file that serializes indexing runs across
// processes sharing one database.
func (c *Config) LockPath() string {
	return c.Database.Path + ".index.lock"
}

// IndexerConfig converts the configuration into the indexer's settings.
// Periodic runs are only scheduled for the server.
func (c *Config) IndexerConfig(withInterval bool) indexer.Config {
	ic := indexer.Config{
		Scan: indexer.ScanConfig{
			Root:         c.Corpus.RootPath,
			SkipHidden:   c.Indexer.SkipHidden,
			SkipPatterns: c.Indexer.SkipPatterns,
			Extensions:   c.Indexer.SupportedExtensions,
		},
		HashWorkers:      c.Indexer.HashWorkers,
		BatchSize:        c.Indexer.BatchSize,
		MaxBatchAttempts: c.Indexer.MaxBatchAttempts,
		LockPath:         c.LockPath(),
	}
	if withInterval {
		ic.Interval = c.Server.IndexInterval
	}
	return ic
}

// Save writes the configuration as YAML. Concurrent writers are serialized
// through a lock file next to path, and readers never see a partial file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return filelock.LockAndWrite(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
