package pgload

import "errors"

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	report, err := importer.Run(ctx, job)
//	if errors.Is(err, pgload.ErrInvalidConfig) {
//	    // Bad configuration, nothing was touched
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	// Raised before any I/O happens.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidProfile indicates an undeclared instance size or
	// aggressiveness level was passed to the tuner.
	ErrInvalidProfile = errors.New("invalid tuning profile")

	// ErrConnectionFailed indicates the database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrPoolExhausted indicates the connection pool was misconfigured
	// (max connections below 1). A correctly configured pool blocks on
	// acquire instead of failing.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrBulkCopy indicates the COPY protocol load of a file failed.
	// A retryable subset of these failures triggers the batch-insert
	// fallback; the rest are terminal for the file.
	ErrBulkCopy = errors.New("bulk copy failed")

	// ErrBatchInsert indicates the batch-insert fallback failed.
	// Terminal for the file; never retried further.
	ErrBatchInsert = errors.New("batch insert failed")

	// ErrImportFailed indicates at least one file of the job failed.
	// The full per-file detail is retained in the ImportReport.
	ErrImportFailed = errors.New("import failed")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrInvalidProfile):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrPoolExhausted):
		return ExitConnectionError
	case errors.Is(err, ErrImportFailed):
		return ExitImportFailed
	}

	return ExitGeneralError
}
