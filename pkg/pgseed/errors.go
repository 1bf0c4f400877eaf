package pgseed

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := seeder.Seed(ctx, config)
//	if errors.Is(err, pgseed.ErrDatabaseExists) {
//	    // rerun with --if-exists=skip
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrArchiveNotFound indicates an archive file does not exist.
	ErrArchiveNotFound = errors.New("archive not found")

	// ErrDatabaseExists indicates the target database already exists and the policy forbids reuse.
	ErrDatabaseExists = errors.New("database already exists")

	// ErrApprovalDenied indicates the user denied approval for dropping a database.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrRestoreFailed indicates the external restore command exited unsuccessfully.
	ErrRestoreFailed = errors.New("restore failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// usageErrorPrefixes are the message prefixes cobra and pflag use for command line misuse.
var usageErrorPrefixes = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"requires at most",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrArchiveNotFound):
		return ExitArchiveNotFound
	case errors.Is(err, ErrDatabaseExists):
		return ExitDatabaseExists
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrRestoreFailed):
		return ExitRestoreFailed
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	}

	errStr := err.Error()
	for _, prefix := range usageErrorPrefixes {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
