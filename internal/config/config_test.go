package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/pkg/pgload"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AllFields(t *testing.T) {
	path := writeConfig(t, `database:
  host: myhost
  port: 5433
  database: mydb
  user: myuser
  sslmode: require
  table: orders
  schema: sales
  pool:
    min_connections: 3
    max_connections: 10
    keepalive_seconds: 60

import:
  chunk_size_mb: 250
  batch_size: 2000
  parallel_workers: 6
  parallel: true

optimization:
  work_mem_mb: 256
  maintenance_work_mem_mb: 1024
  statement_timeout: 1h
  disable_triggers: true
  run_vacuum: true
  run_analyze: true

directories:
  temp_directory: /tmp/pgload
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "myhost", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "mydb", cfg.Database.Database)
	assert.Equal(t, "myuser", cfg.Database.User)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, "orders", cfg.Database.Table)
	assert.Equal(t, "sales", cfg.Database.Schema)
	assert.Equal(t, int32(3), cfg.Database.Pool.MinConnections)
	assert.Equal(t, int32(10), cfg.Database.Pool.MaxConnections)
	assert.Equal(t, time.Minute, cfg.Database.Pool.Keepalive())
	assert.Equal(t, 250, cfg.Import.ChunkSizeMB)
	assert.Equal(t, 2000, cfg.Import.BatchSize)
	assert.Equal(t, 6, cfg.Import.ParallelWorkers)
	assert.True(t, cfg.Import.Parallel)
	assert.Equal(t, 256, cfg.Optimization.WorkMemMB)
	assert.Equal(t, 1024, cfg.Optimization.MaintenanceWorkMemMB)
	assert.Equal(t, "1h", cfg.Optimization.StatementTimeout)
	assert.True(t, cfg.Optimization.DisableTriggers)
	assert.Equal(t, "/tmp/pgload", cfg.Directories.TempDirectory)
}

func TestLoad_MinimalYAMLGetsDefaults(t *testing.T) {
	path := writeConfig(t, `database:
  table: orders
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "public", cfg.Database.Schema)
	assert.Equal(t, int32(2), cfg.Database.Pool.MinConnections)
	assert.Equal(t, int32(5), cfg.Database.Pool.MaxConnections)
	assert.Equal(t, pgload.DefaultKeepalive, cfg.Database.Pool.Keepalive())
	assert.Equal(t, pgload.DefaultChunkSizeMB, cfg.Import.ChunkSizeMB)
	assert.Equal(t, pgload.DefaultBatchSize, cfg.Import.BatchSize)
	assert.Equal(t, 4, cfg.Import.ParallelWorkers)
	assert.False(t, cfg.Import.Parallel)
	assert.Equal(t, pgload.DefaultStatementTimeout, cfg.Optimization.StatementTimeout)
	assert.Equal(t, "pgload-tmp", cfg.Directories.TempDirectory)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultConfigFile))
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "database: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Database.Pool.MinConnections = 20
	cfg.Database.Pool.MaxConnections = 10
	cfg.Import.ChunkSizeMB = 0
	cfg.Import.BatchSize = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgload.ErrInvalidConfig))
	assert.Contains(t, err.Error(), "min_connections")
	assert.Contains(t, err.Error(), "chunk_size_mb")
	assert.Contains(t, err.Error(), "batch_size")
}

func TestValidate_PoolBounds(t *testing.T) {
	cfg := Default()
	cfg.Database.Pool.MaxConnections = 0
	cfg.Database.Pool.MinConnections = 0
	err := cfg.Validate()
	assert.True(t, errors.Is(err, pgload.ErrPoolExhausted), "got: %v", err)

	cfg = Default()
	cfg.Database.Pool.MaxConnections = pgload.MaxPoolConnections + 1
	err = cfg.Validate()
	assert.True(t, errors.Is(err, pgload.ErrInvalidConfig), "got: %v", err)
}

func TestApplyProfile(t *testing.T) {
	base := Default()
	profile := &pgload.TuningProfile{
		MinConnections:       4,
		MaxConnections:       18,
		Keepalive:            45 * time.Second,
		ChunkSizeMB:          200,
		BatchSize:            20000,
		ParallelWorkers:      4,
		WorkMemMB:            1024,
		MaintenanceWorkMemMB: 4096,
		StatementTimeout:     "1h",
		DisableTriggers:      true,
		RunVacuum:            false,
		RunAnalyze:           true,
	}

	cfg := base.ApplyProfile(profile)

	assert.Equal(t, int32(4), cfg.Database.Pool.MinConnections)
	assert.Equal(t, int32(18), cfg.Database.Pool.MaxConnections)
	assert.Equal(t, 45*time.Second, cfg.Database.Pool.Keepalive())
	assert.Equal(t, 200, cfg.Import.ChunkSizeMB)
	assert.Equal(t, 20000, cfg.Import.BatchSize)
	assert.Equal(t, 4, cfg.Import.ParallelWorkers)
	assert.Equal(t, 1024, cfg.Optimization.WorkMemMB)
	assert.True(t, cfg.Optimization.DisableTriggers)
	assert.False(t, cfg.Optimization.RunVacuum)

	// The receiver is untouched.
	assert.Equal(t, int32(5), base.Database.Pool.MaxConnections)
	assert.Equal(t, pgload.DefaultChunkSizeMB, base.Import.ChunkSizeMB)
}
