package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// ForcedApprover implements the Approver interface for forced (non-interactive)
// approval. It displays a countdown and automatically approves after the countdown,
// used when the --force flag is provided.
type ForcedApprover struct {
	verbose   bool
	countdown time.Duration
	output    io.Writer
	sleepFn   func(time.Duration)
}

// NewForcedApprover creates a new ForcedApprover.
func NewForcedApprover(verbose bool) pgseed.Approver {
	return &ForcedApprover{
		verbose:   verbose,
		countdown: pgseed.DefaultForceApprovalCountdown,
		output:    os.Stderr,
		sleepFn:   time.Sleep,
	}
}

// RequestApproval displays a countdown and automatically approves after the countdown.
func (a *ForcedApprover) RequestApproval(ctx context.Context, dbName string) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, "  ┌──────────────────────────────────────────────────────────┐")
	fmt.Fprintln(a.output, "  │  DANGER: --force will DROP an existing database          │")
	fmt.Fprintln(a.output, "  └──────────────────────────────────────────────────────────┘")
	fmt.Fprintf(a.output, "  Database %q and all its data will be replaced by the archive.\n\n", dbName)

	countdown := a.countdown
	if countdown == 0 {
		countdown = pgseed.DefaultForceApprovalCountdown
	}

	for i := int(countdown.Seconds()); i > 0; i-- {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.output)
			return false, ctx.Err()
		default:
			fmt.Fprintf(a.output, "\rDropping in: %d seconds... (Press Ctrl+C to cancel)", i)
			a.sleepFn(time.Second)
		}
	}

	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r✓ Proceeding with database overwrite...                              \n")
	return true, nil
}

// Verify ForcedApprover implements the Approver interface at compile time
var _ pgseed.Approver = (*ForcedApprover)(nil)
