// Package progress tracks import throughput across concurrent workers.
package progress

import (
	"sync"
	"time"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Tracker accumulates rows and bytes processed by any number of
// concurrent workers. Counters are monotonically increasing and exposed
// only through Snapshot; no raw field access.
//
// All methods are safe for concurrent use. Snapshot blocks writers only
// for the duration of the critical section.
type Tracker struct {
	mu        sync.Mutex
	startTime time.Time
	totalRows int64
	bytes     int64
	status    string

	// now is stubbed in tests for deterministic elapsed times.
	now func() time.Time
}

// NewTracker creates a Tracker with the clock started.
func NewTracker() *Tracker {
	return &Tracker{
		startTime: time.Now(),
		status:    "initializing",
		now:       time.Now,
	}
}

// AddRows adds n processed rows to the counter.
func (t *Tracker) AddRows(n int64) {
	t.mu.Lock()
	t.totalRows += n
	t.mu.Unlock()
}

// AddBytes adds n processed bytes to the counter.
func (t *Tracker) AddBytes(n int64) {
	t.mu.Lock()
	t.bytes += n
	t.mu.Unlock()
}

// SetStatus updates the current status message.
func (t *Tracker) SetStatus(status string) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
}

// Snapshot returns a consistent point-in-time view of the counters with
// derived throughput.
func (t *Tracker) Snapshot() pgload.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := t.now().Sub(t.startTime)
	snap := pgload.ProgressSnapshot{
		TotalRows:      t.totalRows,
		BytesProcessed: t.bytes,
		Elapsed:        elapsed,
		Status:         t.status,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		snap.RowsPerSecond = float64(t.totalRows) / secs
		snap.BytesPerSecond = float64(t.bytes) / secs
	}
	return snap
}
