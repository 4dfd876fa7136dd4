package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/salarysys/payrun/internal/batch"
)

// Environment variables that override file configuration.
const (
	EnvHome        = "PAYRUN_HOME"
	EnvConfig      = "PAYRUN_CONFIG"
	EnvDatabaseURL = "PAYRUN_DATABASE_URL"
	EnvLogLevel    = "PAYRUN_LOG_LEVEL"
	EnvLogFormat   = "PAYRUN_LOG_FORMAT"
	EnvLogFile     = "PAYRUN_LOG_FILE"
)

// configFileName is the file name looked up inside the config directory.
const configFileName = "config.yaml"

// Validation errors.
var (
	ErrInvalidBatch    = errors.New("invalid batch configuration")
	ErrInvalidLogging  = errors.New("invalid logging configuration")
	ErrInvalidDatabase = errors.New("invalid database configuration")
)

// Config is the full payrun configuration.
type Config struct {
	Batch    BatchConfig    `yaml:"batch"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Export   ExportConfig   `yaml:"export"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// path is the file the config was loaded from, if any.
	path string
}

// BatchConfig tunes the adaptive batch runner used by exports.
type BatchConfig struct {
	InitialSize        int     `yaml:"initial_size"`
	MinSize            int     `yaml:"min_size"`
	MaxSize            int     `yaml:"max_size"`
	ProgressIntervalMS int     `yaml:"progress_interval_ms"`
	LatencyTargetMS    int     `yaml:"latency_target_ms"`
	GrowFactor         float64 `yaml:"grow_factor"`
	ShrinkFactor       float64 `yaml:"shrink_factor"`
}

// DatabaseConfig points at the payroll Postgres database.
type DatabaseConfig struct {
	URL                   string `yaml:"url"`
	MaxConns              int    `yaml:"max_conns"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
}

// ExportConfig holds defaults for the export commands.
type ExportConfig struct {
	OutputDir         string `yaml:"output_dir"`
	IncludeZeroFields bool   `yaml:"include_zero_fields"`
}

// MetricsConfig controls the Prometheus textfile written after each export.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	def := batch.DefaultConfig()
	return &Config{
		Batch: BatchConfig{
			InitialSize:        def.InitialBatchSize,
			MinSize:            def.MinBatchSize,
			MaxSize:            def.MaxBatchSize,
			ProgressIntervalMS: int(def.ProgressInterval / time.Millisecond),
			LatencyTargetMS:    int(def.LatencyTarget / time.Millisecond),
			GrowFactor:         def.GrowFactor,
			ShrinkFactor:       def.ShrinkFactor,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Database: DatabaseConfig{
			MaxConns:              4,
			ConnectTimeoutSeconds: 10,
		},
		Export: ExportConfig{
			OutputDir: ".",
		},
	}
}

// New returns the defaults overlaid with the config file, if one exists,
// and the environment. A malformed file is ignored with a warning on stderr
// so a broken config never blocks a read-only command; use Load to get the
// error instead.
func New() *Config {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.applyEnv()
		return cfg
	}

	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: ignoring config %s: %v\n", path, err)
		}
		cfg = Default()
		cfg.applyEnv()
	}
	return cfg
}

// Load reads the config file at path on top of the defaults and applies
// environment overrides. It returns an error wrapping os.ErrNotExist when the
// file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := ShallowMergeYAML(cfg, path); err != nil {
		return nil, err
	}
	cfg.path = path
	cfg.applyEnv()
	return cfg, nil
}

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the configuration for values no component can use.
// Inconsistent batch bounds are accepted; the runner resolves them.
func (c *Config) Validate() error {
	b := c.Batch
	switch {
	case b.InitialSize < 0, b.MinSize < 0, b.MaxSize < 0:
		return fmt.Errorf("%w: batch sizes must be >= 0", ErrInvalidBatch)
	case b.ProgressIntervalMS < 0:
		return fmt.Errorf("%w: progress_interval_ms must be >= 0", ErrInvalidBatch)
	case b.LatencyTargetMS < 0:
		return fmt.Errorf("%w: latency_target_ms must be >= 0", ErrInvalidBatch)
	case b.GrowFactor < 0:
		return fmt.Errorf("%w: grow_factor must be >= 0", ErrInvalidBatch)
	case b.ShrinkFactor < 0 || b.ShrinkFactor >= 1:
		return fmt.Errorf("%w: shrink_factor must be in [0, 1)", ErrInvalidBatch)
	}

	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
			return fmt.Errorf("%w: unknown level %q", ErrInvalidLogging, c.Logging.Level)
		}
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: format must be json or console, got %q", ErrInvalidLogging, c.Logging.Format)
	}

	if c.Database.MaxConns < 0 {
		return fmt.Errorf("%w: max_conns must be >= 0", ErrInvalidDatabase)
	}
	if c.Database.ConnectTimeoutSeconds < 0 {
		return fmt.Errorf("%w: connect_timeout_seconds must be >= 0", ErrInvalidDatabase)
	}
	return nil
}

// ToBatchConfig converts the batch section into a runner configuration.
func (c *Config) ToBatchConfig() batch.Config {
	return batch.Config{
		InitialBatchSize: c.Batch.InitialSize,
		MinBatchSize:     c.Batch.MinSize,
		MaxBatchSize:     c.Batch.MaxSize,
		ProgressInterval: time.Duration(c.Batch.ProgressIntervalMS) * time.Millisecond,
		LatencyTarget:    time.Duration(c.Batch.LatencyTargetMS) * time.Millisecond,
		GrowFactor:       c.Batch.GrowFactor,
		ShrinkFactor:     c.Batch.ShrinkFactor,
	}
}

// ConnectTimeout returns the database connect timeout.
func (d DatabaseConfig) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutSeconds) * time.Second
}

// Save writes the configuration as YAML to path, creating parent
// directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// ConfigPath returns the config file path: PAYRUN_CONFIG if set, otherwise
// config.yaml in the config directory.
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}
