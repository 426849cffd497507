package pgload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Import completed with every file committed
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or tuning inputs
	ExitConnectionError = 11 // Failed to connect to database
	ExitImportFailed    = 13 // One or more files failed to import
)

const (
	// MaxPoolConnections is the hard ceiling on pool size regardless of
	// tier; managed PostgreSQL offerings commonly reject pools beyond this.
	MaxPoolConnections = 50

	// MaxChunkSizeMB caps the splitter chunk size derived by the tuner.
	MaxChunkSizeMB = 1000

	// DefaultKeepalive is the TCP keepalive period applied at
	// connection-open time.
	DefaultKeepalive = 30 * time.Second

	// DefaultStatementTimeout bounds any single statement when no tuning
	// profile overrides it.
	DefaultStatementTimeout = "30min"

	// DefaultBatchSize is the fallback INSERT batch size when neither the
	// config nor a tuning profile supplies one.
	DefaultBatchSize = 5000

	// DefaultChunkSizeMB is the split threshold when no tuning profile
	// supplies one.
	DefaultChunkSizeMB = 100

	// DefaultRetryInitialDelay is the initial delay before the first
	// connection retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the maximum delay between connection
	// retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the maximum number of connection
	// retry attempts.
	DefaultRetryMaxAttempts = 3
)
