package pgseed

import "context"

// Approver confirms destructive operations before they run.
//
// Implementations:
//   - ForcedApprover: shows a countdown and approves
//   - InteractiveApprover: asks the user to retype the database name
//   - DenyingApprover: refuses, for non-interactive runs without --force
type Approver interface {
	// RequestApproval asks whether dbName may be dropped and recreated.
	RequestApproval(ctx context.Context, dbName string) (bool, error)
}
