package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var restoreAllCmd = &cobra.Command{
	Use:   "restore-all [dir]",
	Short: "Restore every archive in a directory into its own database",
	Long: `Restore-all scans a directory for archives and restores each one into a new
database named after the file. Archives are processed in file-name order, one
at a time. The first failure stops the run; databases restored before it are kept.

The directory is the argument when given, then restore.archive_dir from
pgseed.yaml, then $PGSEED_ARCHIVE_DIR, then /docker-entrypoint-initdb.d/archives.
An empty directory is not an error: nothing is restored.

Examples:
  # Container init: restore everything under the default directory
  pgseed restore-all

  # Restore custom-format dumps from ./dumps
  pgseed restore-all ./dumps --pattern '*.dump'

  # Re-run safely: leave databases that already exist alone
  pgseed restore-all ./dumps --if-exists skip`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestoreAll,
}

type restoreAllFlagValues struct {
	pattern string
}

var restoreAllFlags restoreAllFlagValues

func init() {
	rootCmd.AddCommand(restoreAllCmd)

	restoreAllCmd.Flags().StringVar(&restoreAllFlags.pattern, "pattern", "",
		"Glob matched against file names in the directory (default: *.tar)")
	registerSeedFlags(restoreAllCmd, &seedFlags)
}

func runRestoreAll(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	config, projectCfg, err := buildSeedConfig(cmd, &seedFlags, verbose)
	if err != nil {
		return err
	}

	var dir string
	if len(args) == 1 {
		dir = args[0]
	}
	config.ArchiveDir = resolveArchiveDir(dir, projectCfg)
	config.Pattern = resolvePattern(restoreAllFlags.pattern, projectCfg)

	return runSeed(config, seedFlags.force, os.Stdout)
}
