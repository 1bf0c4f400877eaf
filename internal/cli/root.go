package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pgseed",
	Short: "Create PostgreSQL databases and restore archives into them",
	Long: `pgseed seeds a PostgreSQL server from pg_dump archives.

For every archive it creates a database named after the file (sales.tar
becomes "sales"), grants all privileges on it, restores the archive with
pg_restore and reports how many tables arrived. Archives are processed one
at a time in file-name order, and the first failure stops the run.

It is built for container init (/docker-entrypoint-initdb.d) and honours the
postgres image variables POSTGRES_USER, POSTGRES_PASSWORD and POSTGRES_DB as
well as the libpq PG* variables.

Exit Codes:
  0  - Success (including nothing to restore)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or archive naming
  11 - Database connection failed
  12 - User denied overwrite approval
  13 - pg_restore failed
  14 - Archive not found
  15 - Target database already exists`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout, os.Stderr)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for pgseed")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

// withInterrupt returns a context cancelled on SIGINT or SIGTERM. Cancelling
// the context kills a running pg_restore. Call stop to release the handler.
func withInterrupt(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, stopping restore...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
