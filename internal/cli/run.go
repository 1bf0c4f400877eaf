package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/internal/db/manager"
	"github.com/vvka-141/pgseed/internal/files/scanner"
	"github.com/vvka-141/pgseed/internal/logging"
	"github.com/vvka-141/pgseed/internal/restoretool"
	"github.com/vvka-141/pgseed/internal/services"
	"github.com/vvka-141/pgseed/internal/tui"
	"github.com/vvka-141/pgseed/internal/ui"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// selectApprover picks how overwrite confirmations are answered:
// --force proceeds after a countdown, a terminal gets a prompt and
// anything else is refused.
func selectApprover(force, interactive, verbose bool, logger pgseed.Logger) pgseed.Approver {
	switch {
	case force:
		return ui.NewForcedApprover(verbose)
	case interactive:
		return ui.NewInteractiveApprover(verbose)
	default:
		return ui.NewDenyingApprover(logger)
	}
}

func connectorFactory(logger pgseed.Logger) pgseed.ConnectorFactory {
	return func(cfg *pgseed.ConnectionConfig, credentials pgseed.Credentials) pgseed.Connector {
		return db.NewConnector(cfg, credentials, db.WithLogger(logger))
	}
}

func credentialsFactory(logger pgseed.Logger) pgseed.CredentialsFactory {
	return func(cfg *pgseed.ConnectionConfig) (pgseed.Credentials, error) {
		return db.NewCredentials(cfg, logger)
	}
}

// newSeeder wires the seed service for one run.
func newSeeder(config pgseed.SeedConfig, force, interactive bool) *services.SeedService {
	logger := logging.NewConsoleLogger(config.Verbose)

	var opts []services.SeedOption
	// The spinner and verbose pg_restore output would fight over the terminal.
	if interactive && !config.Verbose {
		opts = append(opts, services.WithProgress(tui.NewProgress(os.Stderr).Start))
	}

	return services.NewSeedService(
		connectorFactory(logger),
		credentialsFactory(logger),
		selectApprover(force, interactive, config.Verbose, logger),
		logger,
		scanner.NewScanner(),
		manager.New(),
		restoretool.New(config.Restore, logger, config.Verbose),
		opts...,
	)
}

// runSeed executes config and prints the summary to out.
func runSeed(config pgseed.SeedConfig, force bool, out io.Writer) error {
	interactive := tui.IsInteractive()
	seeder := newSeeder(config, force, interactive)

	ctx, stop := withInterrupt(context.Background())
	defer stop()

	summary, err := seeder.Seed(ctx, config)
	if len(summary.Restored) > 0 || len(summary.Skipped) > 0 {
		fmt.Fprint(out, tui.RenderSummary(summary))
	}
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	return nil
}
