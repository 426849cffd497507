package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/internal/progress"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// fakeDatabase hands out fakeConns and records acquire traffic.
type fakeDatabase struct {
	mu       sync.Mutex
	maxConns int32
	conns    []*fakeConn

	// copyErr, when set, fails every COPY attempt.
	copyErr error
	// copyErrFor fails COPY only for paths whose base name matches.
	copyErrFor map[string]error
	// insertErr, when set, fails every batch INSERT.
	insertErr error
	// scanErr, when set, fails every QueryRow scan.
	scanErr error
	// setErr, when set, fails every SET executed inside a transaction.
	setErr error
}

func newFakeDatabase(maxConns int32) *fakeDatabase {
	return &fakeDatabase{maxConns: maxConns}
}

func (d *fakeDatabase) Acquire(ctx context.Context) (pgload.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &fakeConn{db: d}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDatabase) MaxConns() int32 { return d.maxConns }
func (d *fakeDatabase) Close()          {}

type fakeConn struct {
	db       *fakeDatabase
	mu       sync.Mutex
	execs    []string
	txs      []*fakeTx
	released bool
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	c.mu.Lock()
	c.execs = append(c.execs, sql)
	c.mu.Unlock()
	return 0, nil
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgload.Row {
	return &fakeRow{err: c.db.scanErr}
}

func (c *fakeConn) Begin(ctx context.Context) (pgload.Tx, error) {
	tx := &fakeTx{db: c.db, conn: c}
	c.mu.Lock()
	c.txs = append(c.txs, tx)
	c.mu.Unlock()
	return tx, nil
}

func (c *fakeConn) Release() {
	c.mu.Lock()
	c.released = true
	c.mu.Unlock()
}

type fakeRow struct {
	err error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defaults := []string{"4MB", "64MB", "0", "on"}
	for i, d := range dest {
		if s, ok := d.(*string); ok && i < len(defaults) {
			*s = defaults[i]
		}
	}
	return nil
}

// fakeTx counts rows the way the real COPY and INSERT paths do: COPY
// counts newline-terminated lines in the stream, Exec counts the rows
// encoded in a multi-row INSERT.
type fakeTx struct {
	db         *fakeDatabase
	conn       *fakeConn
	mu         sync.Mutex
	execSQL    []string
	execArgs   [][]any
	copied     int64
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if t.db.insertErr != nil && strings.HasPrefix(sql, "INSERT") {
		return 0, t.db.insertErr
	}
	if t.db.setErr != nil && strings.HasPrefix(sql, "SET") {
		return 0, t.db.setErr
	}
	t.mu.Lock()
	t.execSQL = append(t.execSQL, sql)
	t.execArgs = append(t.execArgs, args)
	t.mu.Unlock()
	if t.conn != nil {
		// Mirror onto the owning connection so tests can inspect the
		// full statement stream in one place.
		t.conn.mu.Lock()
		t.conn.execs = append(t.conn.execs, sql)
		t.conn.mu.Unlock()
	}
	return int64(strings.Count(sql, "(") - 1), nil // value groups, minus column list
}

func (t *fakeTx) CopyFrom(ctx context.Context, r io.Reader, copySQL string) (int64, error) {
	if t.db.copyErr != nil {
		return 0, t.db.copyErr
	}
	var rows int64
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(strings.TrimSpace(line)) > 0 {
			rows++
		}
		if err != nil {
			break
		}
	}
	t.copied = rows
	return rows, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

func writeTestCSV(t *testing.T, dir, name string, rows int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("id,name,amount\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&sb, "%d,item-%d,%d.50\n", i, i, i)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func newTestImporter(db *fakeDatabase, opts Options) *Importer {
	if opts.Table == "" {
		opts.Table = "items"
	}
	return NewImporter(db, logging.NewNullLogger(), progress.NewTracker(), opts)
}

func TestRun_SingleFileCopySuccess(t *testing.T) {
	db := newFakeDatabase(5)
	path := writeTestCSV(t, t.TempDir(), "data.csv", 25)

	imp := newTestImporter(db, Options{})
	report, err := imp.Run(context.Background(), pgload.NewImportJob([]string{path}, 100, false, false))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Success)
	assert.True(t, report.Outcomes[0].Success)
	assert.Equal(t, int64(25), report.Outcomes[0].RowsImported, "header excluded from the row count")
	assert.Equal(t, int64(25), report.TotalRows())
	assert.Equal(t, int64(25), imp.Tracker().Snapshot().TotalRows)
}

func TestRun_FallbackOnDataException(t *testing.T) {
	db := newFakeDatabase(5)
	db.copyErr = &pgconn.PgError{Code: "22P02", Message: "invalid input syntax"}
	path := writeTestCSV(t, t.TempDir(), "dirty.csv", 7)

	imp := newTestImporter(db, Options{})
	report, err := imp.Run(context.Background(), pgload.NewImportJob([]string{path}, 100, false, false))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Success)
	assert.Equal(t, int64(7), report.Outcomes[0].RowsImported, "batch insert path committed the rows")
}

func TestRun_FatalCopyErrorFailsFile(t *testing.T) {
	db := newFakeDatabase(5)
	db.copyErr = &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	path := writeTestCSV(t, t.TempDir(), "data.csv", 3)

	imp := newTestImporter(db, Options{})
	report, err := imp.Run(context.Background(), pgload.NewImportJob([]string{path}, 100, false, false))

	assert.ErrorIs(t, err, pgload.ErrImportFailed)
	require.Len(t, report.Outcomes, 1)
	assert.False(t, report.Outcomes[0].Success)
	assert.ErrorIs(t, report.Outcomes[0].Err, pgload.ErrBulkCopy)
	assert.Equal(t, int64(0), report.Outcomes[0].RowsImported)
}

func TestRun_FailedFileDoesNotAbortSiblings(t *testing.T) {
	dir := t.TempDir()
	good1 := writeTestCSV(t, dir, "a.csv", 5)
	missing := filepath.Join(dir, "missing.csv")
	good2 := writeTestCSV(t, dir, "c.csv", 8)

	db := newFakeDatabase(5)
	imp := newTestImporter(db, Options{})
	report, err := imp.Run(context.Background(),
		pgload.NewImportJob([]string{good1, missing, good2}, 100, false, false))

	assert.ErrorIs(t, err, pgload.ErrImportFailed)
	require.Len(t, report.Outcomes, 3)
	assert.True(t, report.Outcomes[0].Success)
	assert.False(t, report.Outcomes[1].Success)
	assert.True(t, report.Outcomes[2].Success)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, int64(13), report.TotalRows())
}

func TestRun_OutcomesKeepFileOrderUnderParallelism(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i := 0; i < 8; i++ {
		files = append(files, writeTestCSV(t, dir, fmt.Sprintf("f%d.csv", i), i+1))
	}

	db := newFakeDatabase(10)
	imp := newTestImporter(db, Options{Workers: 4})
	report, err := imp.Run(context.Background(), pgload.NewImportJob(files, 100, true, false))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, len(files))
	for i, o := range report.Outcomes {
		assert.Equal(t, files[i], o.Path)
		assert.Equal(t, int64(i+1), o.RowsImported)
	}
	assert.Equal(t, int64(1+2+3+4+5+6+7+8), report.TotalRows())
}

func TestRun_InvalidJob(t *testing.T) {
	imp := newTestImporter(newFakeDatabase(5), Options{})

	_, err := imp.Run(context.Background(), pgload.NewImportJob(nil, 100, false, false))
	assert.ErrorIs(t, err, pgload.ErrInvalidConfig)

	_, err = imp.Run(context.Background(), pgload.NewImportJob([]string{"x.csv"}, 0, false, false))
	assert.ErrorIs(t, err, pgload.ErrInvalidConfig)
}

func TestRun_ConnectionsReleasedOnAllPaths(t *testing.T) {
	dir := t.TempDir()
	good := writeTestCSV(t, dir, "good.csv", 2)
	missing := filepath.Join(dir, "missing.csv")

	db := newFakeDatabase(5)
	imp := newTestImporter(db, Options{})
	_, _ = imp.Run(context.Background(), pgload.NewImportJob([]string{good, missing}, 100, false, false))

	db.mu.Lock()
	defer db.mu.Unlock()
	require.NotEmpty(t, db.conns)
	for i, c := range db.conns {
		assert.True(t, c.released, "conn %d leaked", i)
	}
}

func TestWorkerCount_Bounds(t *testing.T) {
	imp := newTestImporter(newFakeDatabase(3), Options{Workers: 10})
	assert.Equal(t, 2, imp.workerCount(), "capped at MaxConns-1")

	imp = newTestImporter(newFakeDatabase(10), Options{Workers: 4})
	assert.Equal(t, 4, imp.workerCount())

	imp = newTestImporter(newFakeDatabase(1), Options{Workers: 4})
	assert.Equal(t, 1, imp.workerCount(), "floored at one worker")

	imp = newTestImporter(newFakeDatabase(10), Options{})
	assert.Equal(t, 1, imp.workerCount())
}

func TestRun_OptimizeAppliesAndRestoresSession(t *testing.T) {
	db := newFakeDatabase(5)
	path := writeTestCSV(t, t.TempDir(), "data.csv", 3)

	profile := &pgload.TuningProfile{
		WorkMemMB:            256,
		MaintenanceWorkMemMB: 1024,
		StatementTimeout:     "1h",
		DisableTriggers:      true,
		RunVacuum:            true,
		RunAnalyze:           true,
	}
	imp := newTestImporter(db, Options{Profile: profile})
	_, err := imp.Run(context.Background(), pgload.NewImportJob([]string{path}, 100, false, true))
	require.NoError(t, err)

	db.mu.Lock()
	coord := db.conns[0]
	db.mu.Unlock()

	joined := strings.Join(coord.execs, "\n")
	assert.Contains(t, joined, "SET work_mem = '256MB'")
	assert.Contains(t, joined, "SET statement_timeout = '1h'")
	assert.Contains(t, joined, "DISABLE TRIGGER ALL")
	assert.Contains(t, joined, "ENABLE TRIGGER ALL")
	assert.Contains(t, joined, "VACUUM")
	assert.Contains(t, joined, "ANALYZE")

	// Triggers come back before the maintenance pass.
	enableIdx := strings.Index(joined, "ENABLE TRIGGER ALL")
	vacuumIdx := strings.Index(joined, "VACUUM")
	assert.Less(t, enableIdx, vacuumIdx)
}

func TestRun_TuningFailureDoesNotAbortJob(t *testing.T) {
	db := newFakeDatabase(5)
	db.scanErr = &pgconn.PgError{Code: "42501", Message: "permission denied"}
	dir := t.TempDir()
	a := writeTestCSV(t, dir, "a.csv", 5)
	b := writeTestCSV(t, dir, "b.csv", 5)

	profile := &pgload.TuningProfile{WorkMemMB: 256, StatementTimeout: "1h", DisableTriggers: true}
	imp := newTestImporter(db, Options{Profile: profile})
	report, err := imp.Run(context.Background(), pgload.NewImportJob([]string{a, b}, 100, false, true))
	require.NoError(t, err, "tuning is best-effort; the load runs at server defaults")

	assert.True(t, report.Success)
	assert.Equal(t, int64(10), report.TotalRows())

	// Nothing was tuned, so nothing gets restored.
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, c := range db.conns {
		joined := strings.Join(c.execs, "\n")
		assert.NotContains(t, joined, "ENABLE TRIGGER")
		assert.NotContains(t, joined, "VACUUM")
	}
}

func TestRun_TuningSetFailureRollsBackAndContinues(t *testing.T) {
	db := newFakeDatabase(5)
	db.setErr = &pgconn.PgError{Code: "42501", Message: "permission denied"}
	path := writeTestCSV(t, t.TempDir(), "data.csv", 4)

	profile := &pgload.TuningProfile{WorkMemMB: 256, StatementTimeout: "1h", DisableTriggers: true}
	imp := newTestImporter(db, Options{Profile: profile})
	report, err := imp.Run(context.Background(), pgload.NewImportJob([]string{path}, 100, false, true))
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.TotalRows())

	db.mu.Lock()
	coord := db.conns[0]
	db.mu.Unlock()

	// The half-applied settings roll back with the optimization
	// transaction rather than leaking into the pooled connection.
	require.NotEmpty(t, coord.txs)
	assert.True(t, coord.txs[0].rolledBack)
	assert.False(t, coord.txs[0].committed)
	joined := strings.Join(coord.execs, "\n")
	assert.NotContains(t, joined, "ENABLE TRIGGER")
	assert.NotContains(t, joined, "VACUUM")
}

func TestRun_StatementTimeoutAppliedWithoutTuning(t *testing.T) {
	db := newFakeDatabase(5)
	path := writeTestCSV(t, t.TempDir(), "data.csv", 2)

	imp := newTestImporter(db, Options{})
	_, err := imp.Run(context.Background(), pgload.NewImportJob([]string{path}, 100, false, false))
	require.NoError(t, err)

	db.mu.Lock()
	defer db.mu.Unlock()
	require.NotEmpty(t, db.conns)
	assert.Contains(t, db.conns[0].execs,
		"SET statement_timeout = '"+pgload.DefaultStatementTimeout+"'")
}

func TestNewImporter_Validation(t *testing.T) {
	db := newFakeDatabase(5)
	logger := logging.NewNullLogger()

	assert.Panics(t, func() { NewImporter(nil, logger, nil, Options{Table: "t"}) })
	assert.Panics(t, func() { NewImporter(db, nil, nil, Options{Table: "t"}) })
	assert.Panics(t, func() { NewImporter(db, logger, nil, Options{}) })
	assert.NotPanics(t, func() { NewImporter(db, logger, nil, Options{Table: "t"}) })
}
