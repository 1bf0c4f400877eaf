package ui

import (
	"context"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// DenyingApprover refuses every request. It is used when nobody can answer a
// prompt (container init, CI) and --force was not given.
type DenyingApprover struct {
	logger pgseed.Logger
}

// NewDenyingApprover creates a DenyingApprover that explains the refusal through logger.
func NewDenyingApprover(logger pgseed.Logger) pgseed.Approver {
	return &DenyingApprover{logger: logger}
}

// RequestApproval always returns false.
func (a *DenyingApprover) RequestApproval(_ context.Context, dbName string) (bool, error) {
	if a.logger != nil {
		a.logger.Error("Refusing to drop database %q without a terminal to confirm; rerun with --force", dbName)
	}
	return false, nil
}

// Verify DenyingApprover implements the Approver interface at compile time
var _ pgseed.Approver = (*DenyingApprover)(nil)
