package db

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// PoolAdapter adapts *pgxpool.Pool to the pgload.Database interface so
// the import orchestrator never touches pgx types directly.
//
// Thread-Safety: safe for concurrent use (pgxpool.Pool is thread-safe).
type PoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPoolAdapter creates a new PoolAdapter wrapping the given pool.
func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

// Acquire obtains a dedicated connection from the pool, blocking until
// one is available.
func (p *PoolAdapter) Acquire(ctx context.Context) (pgload.Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &connAdapter{conn: conn}, nil
}

// MaxConns reports the pool's configured upper bound.
func (p *PoolAdapter) MaxConns() int32 {
	return p.pool.Config().MaxConns
}

// Close releases all pooled connections.
func (p *PoolAdapter) Close() {
	p.pool.Close()
}

// connAdapter adapts *pgxpool.Conn to pgload.Conn.
type connAdapter struct {
	conn *pgxpool.Conn
}

func (c *connAdapter) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := c.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *connAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgload.Row {
	return c.conn.QueryRow(ctx, sql, args...)
}

func (c *connAdapter) Begin(ctx context.Context) (pgload.Tx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txAdapter{tx: tx}, nil
}

func (c *connAdapter) Release() {
	c.conn.Release()
}

// txAdapter adapts pgx.Tx to pgload.Tx.
type txAdapter struct {
	tx pgx.Tx
}

func (t *txAdapter) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CopyFrom streams r through the COPY protocol on the transaction's
// underlying connection.
func (t *txAdapter) CopyFrom(ctx context.Context, r io.Reader, copySQL string) (int64, error) {
	tag, err := t.tx.Conn().PgConn().CopyFrom(ctx, r, copySQL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txAdapter) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *txAdapter) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// Verify PoolAdapter implements Database at compile time.
var _ pgload.Database = (*PoolAdapter)(nil)
