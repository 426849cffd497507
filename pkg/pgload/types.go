package pgload

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tier identifies the hardware service class of a database instance.
type Tier string

const (
	// TierShared is a burstable instance sharing resources with other tenants.
	// Shared instances carry hard connection ceilings.
	TierShared Tier = "shared"

	// TierDedicated is an instance with reserved CPU and memory.
	TierDedicated Tier = "dedicated"
)

// HardwareProfile declares the remote database instance specification.
// Profiles are drawn from a fixed enumerated table of instance sizes;
// see tuner.InstanceSpecs.
type HardwareProfile struct {
	Name     string
	MemoryGB float64
	CPUCores int
	Tier     Tier
}

// TuningProfile is a derived, immutable record of import settings computed
// once per run from a (HardwareProfile, Level) pair. It is never mutated
// after creation.
//
// Invariants:
//   - MaxConnections <= MaxPoolConnections (50)
//   - ParallelWorkers <= MaxConnections - 1
//   - ParallelWorkers <= local CPU cores - 1 (floor 1)
type TuningProfile struct {
	// Connection pool bounds.
	MinConnections int32
	MaxConnections int32
	Keepalive      time.Duration

	// Import sizing.
	ChunkSizeMB     int
	BatchSize       int
	ParallelWorkers int

	// Session parameters applied by the orchestrator when optimization
	// is requested.
	WorkMemMB            int
	MaintenanceWorkMemMB int
	StatementTimeout     string

	DisableTriggers bool
	RunVacuum       bool
	RunAnalyze      bool

	// Recommendations are human-readable hints derived from the profile.
	// Display-only; never consulted by the orchestrator.
	Recommendations []string
}

// ImportJob describes one import run: an ordered list of source files and
// the knobs the orchestrator honors. Immutable once constructed; owned by
// the caller and consumed by the importer.
type ImportJob struct {
	// ID uniquely identifies this run in logs.
	ID uuid.UUID

	// Files are imported in this order. When parallel dispatch is enabled
	// completion order is unordered, but outcomes are reported in this order.
	Files []string

	// BatchSize is the number of rows per INSERT statement on the
	// batch-insert fallback path.
	BatchSize int

	// Parallel enables the bounded worker pool when more than one file
	// is queued.
	Parallel bool

	// Optimize applies session-level tuning before the first file and
	// restores it after the last.
	Optimize bool
}

// NewImportJob constructs an ImportJob with a fresh ID.
func NewImportJob(files []string, batchSize int, parallel, optimize bool) ImportJob {
	return ImportJob{
		ID:        uuid.New(),
		Files:     append([]string(nil), files...),
		BatchSize: batchSize,
		Parallel:  parallel,
		Optimize:  optimize,
	}
}

// Validate checks the job before any I/O happens.
func (j *ImportJob) Validate() error {
	var errs []error

	if len(j.Files) == 0 {
		errs = append(errs, fmt.Errorf("at least one source file is required: %w", ErrInvalidConfig))
	}
	if j.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be at least 1: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ImportOutcome is the terminal per-file result of an import run.
type ImportOutcome struct {
	Path         string
	Success      bool
	RowsImported int64

	// Err holds the failure detail when Success is false. The error never
	// propagates to sibling files; it is retained here for the caller.
	Err error
}

// ImportReport aggregates per-file outcomes for one run.
// Success is true only when every file committed.
type ImportReport struct {
	JobID    uuid.UUID
	Outcomes []ImportOutcome
	Success  bool
}

// Succeeded returns the number of files that committed.
func (r *ImportReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of files that reached the Failed state.
func (r *ImportReport) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// TotalRows returns the sum of rows imported across all files.
func (r *ImportReport) TotalRows() int64 {
	var n int64
	for _, o := range r.Outcomes {
		n += o.RowsImported
	}
	return n
}

// FileAnalysis is the read-only result of inspecting a source file.
type FileAnalysis struct {
	Path      string
	SizeBytes int64
	SizeMB    float64
	Encoding  string

	// RowCount excludes the header. For files above the exact-count
	// threshold it is a sample-based estimate.
	RowCount  int64
	Estimated bool

	Columns     []string
	ColumnCount int

	// SampleRows holds the first few parsed data rows.
	SampleRows [][]string

	// EstimatedChunks is the chunk count the splitter would produce for
	// the chunk size the analysis was taken with.
	EstimatedChunks int
}

// ProgressSnapshot is a consistent point-in-time view over the live
// progress counters.
type ProgressSnapshot struct {
	TotalRows      int64
	BytesProcessed int64
	Elapsed        time.Duration
	RowsPerSecond  float64
	BytesPerSecond float64
	Status         string
}
