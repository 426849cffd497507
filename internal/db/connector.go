// Package db establishes bounded pgx connection pools against the target
// PostgreSQL server and adapts them to the pgload.Database interface.
package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgload/internal/retry"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// ConnectionSettings carries everything needed to open the pool.
// Constructed once by the CLI from config, flags, and environment;
// immutable afterwards.
type ConnectionSettings struct {
	// ConnString, when set, wins over the granular fields.
	ConnString string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Schema is installed as the connection search_path so unqualified
	// table names resolve against it.
	Schema string

	MinConns  int32
	MaxConns  int32
	Keepalive time.Duration

	ConnectTimeout time.Duration
}

// Connect opens a connection pool with the configured bounds and TCP
// keepalive, verifies it with a ping, and retries transient failures
// with exponential backoff.
func Connect(ctx context.Context, settings ConnectionSettings, logger pgload.Logger) (*pgxpool.Pool, error) {
	if settings.MaxConns < 1 {
		return nil, fmt.Errorf("pool max connections must be at least 1: %w", pgload.ErrPoolExhausted)
	}

	classifier := retry.NewPostgreSQLErrorClassifier()
	strategy := retry.NewExponentialBackoff(pgload.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(pgload.DefaultRetryInitialDelay),
		retry.WithMaxDelay(pgload.DefaultRetryMaxDelay),
	)
	executor := retry.NewExecutor(classifier, strategy).WithOnRetry(
		func(attempt int, err error, delay time.Duration) {
			logger.Verbose("connection attempt %d failed (%v), retrying in %s", attempt+1, err, delay)
		})

	var pool *pgxpool.Pool
	err := executor.Execute(ctx, func(ctx context.Context) error {
		poolConfig, err := pgxpool.ParseConfig(buildConnString(settings))
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", err)
		}
		configurePool(poolConfig, settings)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, settings)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return wrapConnectionError(err, settings)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Verbose("connection pool ready (%d-%d connections)", settings.MinConns, settings.MaxConns)
	return pool, nil
}

func configurePool(poolConfig *pgxpool.Config, settings ConnectionSettings) {
	poolConfig.MinConns = settings.MinConns
	poolConfig.MaxConns = settings.MaxConns

	keepalive := settings.Keepalive
	if keepalive <= 0 {
		keepalive = pgload.DefaultKeepalive
	}
	connectTimeout := settings.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	dialer := &net.Dialer{
		KeepAlive: keepalive,
		Timeout:   connectTimeout,
	}
	poolConfig.ConnConfig.DialFunc = dialer.DialContext

	if settings.Schema != "" {
		poolConfig.ConnConfig.RuntimeParams["search_path"] = settings.Schema
	}
}

// buildConnString renders the granular settings as a key/value conn
// string, or passes a provided connection string through untouched.
func buildConnString(s ConnectionSettings) string {
	if s.ConnString != "" {
		return s.ConnString
	}

	parts := []string{
		"host=" + quoteConnValue(s.Host),
		fmt.Sprintf("port=%d", s.Port),
		"dbname=" + quoteConnValue(s.Database),
		"user=" + quoteConnValue(s.User),
	}
	if s.Password != "" {
		parts = append(parts, "password="+quoteConnValue(s.Password))
	}
	if s.SSLMode != "" {
		parts = append(parts, "sslmode="+s.SSLMode)
	}
	return strings.Join(parts, " ")
}

// quoteConnValue quotes a libpq key/value setting when it contains
// whitespace or quote characters.
func quoteConnValue(v string) string {
	if v == "" || strings.ContainsAny(v, " '\\") {
		escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
		return "'" + escaped + "'"
	}
	return v
}

// RedactConnString removes the password from a connection string for
// log output.
func RedactConnString(connStr string) string {
	if u, err := url.Parse(connStr); err == nil && u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
			return u.String()
		}
	}
	return connStr
}

// wrapConnectionError wraps raw pgx connection errors with actionable
// guidance.
func wrapConnectionError(err error, settings ConnectionSettings) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf("connection refused to %s (is PostgreSQL running? check: pg_isready -h %s -p %d): %w",
			addr, settings.Host, settings.Port, pgload.ErrConnectionFailed)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf("cannot resolve host %q: %w", settings.Host, pgload.ErrConnectionFailed)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf("password authentication failed for user %q: %w", settings.User, pgload.ErrConnectionFailed)

	case strings.Contains(errStr, "database") && strings.Contains(errStr, "does not exist"):
		return fmt.Errorf("database %q does not exist on %s: %w", settings.Database, addr, pgload.ErrConnectionFailed)
	}

	return fmt.Errorf("%v: %w", err, pgload.ErrConnectionFailed)
}
