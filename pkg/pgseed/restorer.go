package pgseed

import "context"

// RestoreRequest describes one invocation of the restore utility.
type RestoreRequest struct {
	ArchivePath string
	Database    string

	// Connection carries host, port, user and a resolved password.
	// Its Database field is ignored in favor of Database.
	Connection *ConnectionConfig
}

// Restorer runs the external restore utility.
type Restorer interface {
	// Available resolves the restore executable, returning its path.
	Available() (string, error)

	// Restore restores one archive into an existing, empty database.
	// A non-zero exit of the utility yields an error wrapping ErrRestoreFailed.
	Restore(ctx context.Context, req RestoreRequest) error
}
