package pgload

import (
	"context"
	"io"
)

// Database abstracts the bounded connection pool used by the import
// orchestrator. This interface decouples the orchestrator from
// pgx-specific types so the dispatch and fallback logic can be exercised
// without a live server.
//
// Thread-Safety: implementations must be safe for concurrent Acquire
// calls; one worker per in-flight file checks out its own connection.
type Database interface {
	// Acquire obtains a dedicated connection, blocking until one is
	// available. There is no acquire timeout by default; cancellation is
	// driven by ctx.
	Acquire(ctx context.Context) (Conn, error)

	// MaxConns reports the pool's configured upper bound. The
	// orchestrator caps its worker count at MaxConns-1.
	MaxConns() int32

	// Close releases all pooled connections.
	Close()
}

// Conn is a checked-out database connection, exclusively owned by the
// worker holding it until Release is called. Release must run on every
// exit path, including errors.
type Conn interface {
	// Exec executes a statement outside any explicit transaction and
	// returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// QueryRow executes a query expected to return at most one row.
	// Always returns a non-nil Row; errors are deferred until Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Begin starts a transaction on this connection.
	Begin(ctx context.Context) (Tx, error)

	// Release returns the connection to the pool. After calling Release
	// the connection must not be used.
	Release()
}

// Row represents a single row returned by QueryRow.
type Row interface {
	// Scan reads the values from the row into dest values.
	Scan(dest ...any) error
}

// Tx is a transaction on a checked-out connection.
type Tx interface {
	// Exec executes a statement within the transaction and returns the
	// number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// CopyFrom streams r through the COPY ... FROM STDIN protocol using
	// the given COPY statement and returns the driver-reported row count.
	CopyFrom(ctx context.Context, r io.Reader, copySQL string) (int64, error)

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Safe to call after Commit; the
	// error is ignored on that path.
	Rollback(ctx context.Context) error
}
