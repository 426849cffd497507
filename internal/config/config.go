// Package config loads and validates the pgload YAML configuration.
// The loaded Config is an immutable value object constructed once and
// passed explicitly to every component; nothing reads it ambiently.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// DefaultConfigFile is the config file name looked up in the working
// directory when no --config flag is given.
const DefaultConfigFile = "pgload.yaml"

// PoolConfig bounds the database connection pool.
type PoolConfig struct {
	MinConnections   int32 `yaml:"min_connections"`
	MaxConnections   int32 `yaml:"max_connections"`
	KeepaliveSeconds int   `yaml:"keepalive_seconds"`
}

// Keepalive returns the TCP keepalive period applied at connection-open time.
func (p PoolConfig) Keepalive() time.Duration {
	return time.Duration(p.KeepaliveSeconds) * time.Second
}

// DatabaseConfig identifies the target server, table, and pool bounds.
// Either ConnectionString or the granular Host/Database/User fields must
// be set. Password is never stored here; it comes from $PGPASSWORD, an
// env file, or the connection string.
type DatabaseConfig struct {
	ConnectionString string `yaml:"connection_string,omitempty"`

	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`

	Table  string `yaml:"table"`
	Schema string `yaml:"schema,omitempty"`

	Pool PoolConfig `yaml:"pool"`
}

// ImportConfig sizes the import pipeline.
type ImportConfig struct {
	ChunkSizeMB     int  `yaml:"chunk_size_mb"`
	BatchSize       int  `yaml:"batch_size"`
	ParallelWorkers int  `yaml:"parallel_workers"`
	Parallel        bool `yaml:"parallel"`
}

// OptimizationConfig holds the session tuning parameters applied for the
// duration of an import and reverted afterward.
type OptimizationConfig struct {
	WorkMemMB            int    `yaml:"work_mem_mb"`
	MaintenanceWorkMemMB int    `yaml:"maintenance_work_mem_mb"`
	StatementTimeout     string `yaml:"statement_timeout"`
	DisableTriggers      bool   `yaml:"disable_triggers"`
	RunVacuum            bool   `yaml:"run_vacuum"`
	RunAnalyze           bool   `yaml:"run_analyze"`
}

// DirectoriesConfig names the scratch locations pgload may create.
type DirectoriesConfig struct {
	TempDirectory string `yaml:"temp_directory"`
}

// Config is the root configuration document.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Import       ImportConfig       `yaml:"import"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Directories  DirectoriesConfig  `yaml:"directories"`
}

// Load reads and validates the config file at path, filling defaults for
// optional fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with every optional field at its default,
// suitable as a base when no config file exists and connection details
// come from flags and environment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Schema == "" {
		c.Database.Schema = "public"
	}
	if c.Database.Pool.MinConnections == 0 {
		c.Database.Pool.MinConnections = 2
	}
	if c.Database.Pool.MaxConnections == 0 {
		c.Database.Pool.MaxConnections = 5
	}
	if c.Database.Pool.KeepaliveSeconds == 0 {
		c.Database.Pool.KeepaliveSeconds = int(pgload.DefaultKeepalive / time.Second)
	}
	if c.Import.ChunkSizeMB == 0 {
		c.Import.ChunkSizeMB = pgload.DefaultChunkSizeMB
	}
	if c.Import.BatchSize == 0 {
		c.Import.BatchSize = pgload.DefaultBatchSize
	}
	if c.Import.ParallelWorkers == 0 {
		c.Import.ParallelWorkers = 4
	}
	if c.Optimization.StatementTimeout == "" {
		c.Optimization.StatementTimeout = pgload.DefaultStatementTimeout
	}
	if c.Directories.TempDirectory == "" {
		c.Directories.TempDirectory = "pgload-tmp"
	}
}

// Validate checks the configuration before any I/O happens.
// It returns a multi-error if multiple validation failures occur.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Pool.MaxConnections < 1 {
		errs = append(errs, fmt.Errorf("pool max_connections must be at least 1: %w", pgload.ErrPoolExhausted))
	}
	if c.Database.Pool.MaxConnections > pgload.MaxPoolConnections {
		errs = append(errs, fmt.Errorf("pool max_connections %d exceeds limit %d: %w",
			c.Database.Pool.MaxConnections, pgload.MaxPoolConnections, pgload.ErrInvalidConfig))
	}
	if c.Database.Pool.MinConnections > c.Database.Pool.MaxConnections {
		errs = append(errs, fmt.Errorf("pool min_connections %d exceeds max_connections %d: %w",
			c.Database.Pool.MinConnections, c.Database.Pool.MaxConnections, pgload.ErrInvalidConfig))
	}
	if c.Import.ChunkSizeMB < 1 {
		errs = append(errs, fmt.Errorf("chunk_size_mb must be at least 1: %w", pgload.ErrInvalidConfig))
	}
	if c.Import.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be at least 1: %w", pgload.ErrInvalidConfig))
	}
	if c.Import.ParallelWorkers < 1 {
		errs = append(errs, fmt.Errorf("parallel_workers must be at least 1: %w", pgload.ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ApplyProfile overlays a tuning profile onto the configuration, returning
// a new Config. The receiver is not modified.
func (c *Config) ApplyProfile(p *pgload.TuningProfile) *Config {
	out := *c
	out.Database.Pool.MinConnections = p.MinConnections
	out.Database.Pool.MaxConnections = p.MaxConnections
	out.Database.Pool.KeepaliveSeconds = int(p.Keepalive / time.Second)
	out.Import.ChunkSizeMB = p.ChunkSizeMB
	out.Import.BatchSize = p.BatchSize
	out.Import.ParallelWorkers = p.ParallelWorkers
	out.Optimization.WorkMemMB = p.WorkMemMB
	out.Optimization.MaintenanceWorkMemMB = p.MaintenanceWorkMemMB
	out.Optimization.StatementTimeout = p.StatementTimeout
	out.Optimization.DisableTriggers = p.DisableTriggers
	out.Optimization.RunVacuum = p.RunVacuum
	out.Optimization.RunAnalyze = p.RunAnalyze
	return &out
}
