// Package importer orchestrates bulk CSV loads into PostgreSQL.
//
// Each file is loaded on its own pooled connection in its own
// transaction: first through the COPY protocol, then, when COPY rejects
// the data, through a row-by-row batch-insert fallback. A failure is
// terminal for its file only; sibling files always run to completion.
package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/vvka-141/pgload/internal/progress"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// Options configures an Importer.
type Options struct {
	// Schema and Table identify the load target. Schema may be empty.
	Schema string
	Table  string

	// Profile supplies session tuning and sizing. Optional; when nil the
	// importer runs with server defaults and package-level fallbacks.
	Profile *pgload.TuningProfile

	// Workers bounds the parallel dispatch. The effective pool is
	// min(Workers, MaxConns-1), floored at 1.
	Workers int
}

// Importer runs import jobs against a single target table.
type Importer struct {
	db      pgload.Database
	logger  pgload.Logger
	tracker *progress.Tracker
	opts    Options
}

// NewImporter creates an Importer.
// Panics if db or logger is nil, or if no table is given; these are
// programming errors, not runtime conditions.
func NewImporter(db pgload.Database, logger pgload.Logger, tracker *progress.Tracker, opts Options) *Importer {
	if db == nil {
		panic("importer: db is required")
	}
	if logger == nil {
		panic("importer: logger is required")
	}
	if opts.Table == "" {
		panic("importer: target table is required")
	}
	if tracker == nil {
		tracker = progress.NewTracker()
	}
	return &Importer{
		db:      db,
		logger:  logger,
		tracker: tracker,
		opts:    opts,
	}
}

// Tracker exposes the live progress counters for display layers.
func (im *Importer) Tracker() *progress.Tracker {
	return im.tracker
}

// Run executes the job and returns a report with one outcome per file,
// in the job's file order regardless of completion order.
//
// The returned error is non-nil when the job could not start
// (ErrInvalidConfig) or when at least one file failed (ErrImportFailed).
// A non-nil report accompanies ErrImportFailed; per-file detail lives in
// its outcomes.
func (im *Importer) Run(ctx context.Context, job pgload.ImportJob) (*pgload.ImportReport, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	im.logger.Info("Starting import job %s: %d file(s) into %s",
		job.ID, len(job.Files), qualifiedTable(im.opts.Schema, im.opts.Table))
	im.tracker.SetStatus("running")

	// The coordinating connection holds the trigger toggle and the
	// maintenance pass for the whole run. Worker count is capped at
	// MaxConns-1 so this acquire can never deadlock against the pool.
	// Tuning is best-effort: any failure here is logged and the load
	// proceeds at server defaults, with prev left nil so no restore runs.
	var (
		coord pgload.Conn
		prev  *sessionState
	)
	if job.Optimize && im.opts.Profile != nil {
		if c, err := im.db.Acquire(ctx); err != nil {
			im.logger.Error("Session optimization skipped: %v", err)
		} else {
			coord = c
			defer coord.Release()

			prev, err = optimizeSession(ctx, coord, im.opts.Profile, im.opts.Schema, im.opts.Table)
			if err != nil {
				im.logger.Error("Session optimization skipped: %v", err)
			} else {
				im.logger.Verbose("Session optimization applied (work_mem=%dMB, triggers disabled=%v)",
					im.opts.Profile.WorkMemMB, prev.triggersDisabled)
			}
		}
	}

	outcomes := make([]pgload.ImportOutcome, len(job.Files))
	if job.Parallel && len(job.Files) > 1 && im.workerCount() > 1 {
		im.runParallel(ctx, job, outcomes)
	} else {
		for i, path := range job.Files {
			outcomes[i] = im.importFile(ctx, path, job)
		}
	}

	if prev != nil {
		if err := restoreSession(ctx, coord, prev, im.opts.Profile, im.opts.Schema, im.opts.Table, im.logger); err != nil {
			// The import result stands; the session restore failure is
			// surfaced but does not fail committed files.
			im.logger.Error("Failed to restore session after import: %v", err)
		}
	}

	report := &pgload.ImportReport{
		JobID:    job.ID,
		Outcomes: outcomes,
		Success:  true,
	}
	for _, o := range outcomes {
		if !o.Success {
			report.Success = false
		}
	}

	im.tracker.SetStatus("done")
	if !report.Success {
		return report, fmt.Errorf("%d of %d file(s) failed: %w",
			report.Failed(), len(outcomes), pgload.ErrImportFailed)
	}
	im.logger.Info("Import job %s complete: %d rows across %d file(s)",
		job.ID, report.TotalRows(), len(outcomes))
	return report, nil
}

// statementTimeout resolves the per-connection timeout: the profile's
// value when one is set, the package default otherwise.
func (im *Importer) statementTimeout() string {
	if im.opts.Profile != nil && im.opts.Profile.StatementTimeout != "" {
		return im.opts.Profile.StatementTimeout
	}
	return pgload.DefaultStatementTimeout
}

// workerCount resolves the effective parallel worker bound.
func (im *Importer) workerCount() int {
	workers := im.opts.Workers
	if workers < 1 {
		workers = 1
	}
	if max := int(im.db.MaxConns()) - 1; workers > max {
		workers = max
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// runParallel dispatches files to a bounded worker pool. Outcomes land
// at the file's original index; no ordering is imposed on completion.
func (im *Importer) runParallel(ctx context.Context, job pgload.ImportJob, outcomes []pgload.ImportOutcome) {
	workers := im.workerCount()
	im.logger.Verbose("Dispatching %d file(s) across %d worker(s)", len(job.Files), workers)

	type task struct {
		index int
		path  string
	}
	tasks := make(chan task)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				outcomes[t.index] = im.importFile(ctx, t.path, job)
			}
		}()
	}

	for i, path := range job.Files {
		tasks <- task{index: i, path: path}
	}
	close(tasks)
	wg.Wait()
}

// importFile runs the per-file state machine:
//
//	acquire -> copy -> commit
//	             \-> (retryable) reopen -> batch insert -> commit
//
// Every exit path releases the connection and closes the source file.
// The returned outcome is terminal; errors never propagate to siblings.
func (im *Importer) importFile(ctx context.Context, path string, job pgload.ImportJob) pgload.ImportOutcome {
	outcome := pgload.ImportOutcome{Path: path}
	name := filepath.Base(path)

	conn, err := im.db.Acquire(ctx)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to acquire connection for %q: %w", name, err)
		im.logger.Error("Import of %s failed: %v", name, outcome.Err)
		return outcome
	}
	defer conn.Release()

	// Every import connection gets a statement timeout, tuned or not.
	stmt := fmt.Sprintf("SET statement_timeout = '%s'", im.statementTimeout())
	if _, err := conn.Exec(ctx, stmt); err != nil {
		// Non-fatal: the load still works with the server's timeout.
		im.logger.Verbose("Statement timeout not applied for %s: %v", name, err)
	}

	if job.Optimize && im.opts.Profile != nil {
		if err := applySessionSettings(ctx, conn, im.opts.Profile); err != nil {
			// Non-fatal: the load still works at server defaults.
			im.logger.Verbose("Session settings not applied for %s: %v", name, err)
		}
	}

	rows, err := im.loadWithFallback(ctx, conn, path, job)
	if err != nil {
		outcome.Err = err
		im.logger.Error("Import of %s failed: %v", name, err)
		return outcome
	}

	outcome.Success = true
	outcome.RowsImported = rows
	im.tracker.AddRows(rows)
	im.logger.Info("Imported %s: %d rows", name, rows)
	return outcome
}

// loadWithFallback attempts the COPY path and, for retryable COPY
// failures, falls back to batch insert on a fresh transaction over a
// freshly opened file.
func (im *Importer) loadWithFallback(ctx context.Context, conn pgload.Conn, path string, job pgload.ImportJob) (int64, error) {
	name := filepath.Base(path)

	sf, err := openSource(path)
	if err != nil {
		return 0, err
	}

	rows, copyErr := im.copyInTx(ctx, conn, sf)
	size := sf.size
	sf.Close()

	if copyErr == nil {
		im.tracker.AddBytes(size)
		return rows, nil
	}

	if classifyCopyError(copyErr) != copyRetryable {
		return 0, copyErr
	}
	im.logger.Info("COPY rejected %s (%v); retrying with batch insert", name, copyErr)

	// The COPY stream consumed the reader, so the fallback starts over
	// from a re-opened file.
	sf, err = openSource(path)
	if err != nil {
		return 0, err
	}
	defer sf.Close()

	rows, err = im.batchInTx(ctx, conn, sf, job.BatchSize)
	if err != nil {
		return 0, err
	}
	im.tracker.AddBytes(sf.size)
	return rows, nil
}

func (im *Importer) copyInTx(ctx context.Context, conn pgload.Conn, sf *sourceFile) (int64, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	rows, err := bulkCopy(ctx, tx, sf, im.opts.Schema, im.opts.Table)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("failed to commit bulk copy: %w", err)
	}
	return rows, nil
}

func (im *Importer) batchInTx(ctx context.Context, conn pgload.Conn, sf *sourceFile, batchSize int) (int64, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	rows, err := batchInsert(ctx, tx, sf, im.opts.Schema, im.opts.Table, batchSize, im.logger)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return rows, nil
}
