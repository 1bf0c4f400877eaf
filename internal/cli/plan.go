package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgseed/internal/config"
	"github.com/vvka-141/pgseed/internal/files/scanner"
	"github.com/vvka-141/pgseed/internal/tui"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

var planCmd = &cobra.Command{
	Use:   "plan [dir|archive]",
	Short: "Show which databases a restore would create, without connecting",
	Long: `Plan resolves archives and their target databases exactly as restore and
restore-all do, then prints the result. It never connects to the server.

A file argument is planned like restore; a directory (or no argument) is
planned like restore-all.

Examples:
  # What would container init restore?
  pgseed plan

  # Check a dump directory, including SHA-256 digests
  pgseed plan ./dumps --checksums`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

type planFlagValues struct {
	pattern    string
	database   string
	checksums  bool
	configPath string
}

var planFlags planFlagValues

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planFlags.pattern, "pattern", "",
		"Glob matched against file names in the directory (default: *.tar)")
	planCmd.Flags().StringVarP(&planFlags.database, "database", "d", "",
		"Target database name when planning a single archive")
	planCmd.Flags().BoolVar(&planFlags.checksums, "checksums", false,
		"Compute the SHA-256 digest of every archive")
	registerConfigFlag(planCmd, &planFlags.configPath)
}

// buildPlanConfig selects the archives the same way restore and restore-all would.
func buildPlanConfig(arg string, flags *planFlagValues, projectCfg *config.ProjectConfig) pgseed.SeedConfig {
	var cfg pgseed.SeedConfig
	if arg != "" {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			cfg.Archives = []string{arg}
			cfg.DatabaseName = firstNonEmpty(flags.database, restoreSection(projectCfg).Database)
			return cfg
		}
	}
	cfg.ArchiveDir = resolveArchiveDir(arg, projectCfg)
	cfg.Pattern = resolvePattern(flags.pattern, projectCfg)
	return cfg
}

func runPlan(cmd *cobra.Command, args []string) error {
	projectCfg, err := loadProjectConfig(planFlags.configPath)
	if err != nil {
		return err
	}

	var arg string
	if len(args) == 1 {
		arg = args[0]
	}
	cfg := buildPlanConfig(arg, &planFlags, projectCfg)
	cfg.Verbose = getVerboseFlag(cmd)

	return printPlan(cfg, planFlags.checksums, os.Stdout)
}

// printPlan resolves cfg into a plan and renders it to out.
func printPlan(cfg pgseed.SeedConfig, checksums bool, out io.Writer) error {
	archiveScanner := scanner.NewScanner()
	seeder := newSeeder(cfg, false, false)

	entries, err := seeder.Plan(cfg)
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}

	if checksums {
		for i := range entries {
			if err := archiveScanner.Checksum(&entries[i].Archive); err != nil {
				return fmt.Errorf("plan failed: %w", err)
			}
		}
	}

	fmt.Fprint(out, tui.RenderPlan(entries, checksums))
	return nil
}
