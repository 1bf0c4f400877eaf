package pgseed

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // All archives restored
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or archive naming
	ExitConnectionError = 11 // Failed to connect to database
	ExitApprovalDenied  = 12 // User denied overwrite approval
	ExitRestoreFailed   = 13 // External restore command failed
	ExitArchiveNotFound = 14 // Archive file not found
	ExitDatabaseExists  = 15 // Target database already exists
)

const (
	// DefaultForceApprovalCountdown is the countdown shown before a forced overwrite proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the delay before the first connection retry.
	DefaultRetryInitialDelay = 250 * time.Millisecond

	// DefaultRetryMaxDelay caps the delay between connection retries.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultRetryMaxAttempts is the number of connection retries after the first attempt.
	// Container init often starts before the server accepts connections.
	DefaultRetryMaxAttempts = 3

	// DefaultManagementDB is the database used for CREATE/DROP DATABASE when nothing else is configured.
	DefaultManagementDB = "postgres"

	// DefaultArchiveDir is where directory mode looks for archives when no directory is given.
	DefaultArchiveDir = "/docker-entrypoint-initdb.d/archives"

	// DefaultArchivePattern selects archive files in directory mode.
	DefaultArchivePattern = "*.tar"

	// DefaultRestoreBinary is the restore utility looked up on PATH.
	DefaultRestoreBinary = "pg_restore"

	// MaxIdentifierLength is PostgreSQL's NAMEDATALEN-1; longer names are silently truncated by the server.
	MaxIdentifierLength = 63

	// StderrTailLines is how many trailing stderr lines of a failed restore are reported.
	StderrTailLines = 20
)
