// Package retry provides automatic retry logic with exponential backoff
// for transient database connection failures.
//
// Error classification is pluggable through pgload.ErrorClassifier. The
// PostgreSQLErrorClassifier recognizes transient conditions by SQLSTATE
// class (connection exceptions, resource exhaustion, operator
// intervention) and by network-level error types, never by matching
// error message text.
//
// Executor instances are safe for concurrent use. Use WithOnRetry() to
// derive independent configurations per goroutine.
package retry
