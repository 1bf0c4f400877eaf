package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgseed/internal/config"
	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/internal/restoretool"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// EnvArchiveDir names the archive directory when restore-all gets no argument
// and pgseed.yaml sets none.
const EnvArchiveDir = "PGSEED_ARCHIVE_DIR"

// loadProjectConfig reads --config, or ./pgseed.yaml when it exists.
// A missing implicit file is not an error; a missing explicit one is.
func loadProjectConfig(path string) (*config.ProjectConfig, error) {
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w: %w", path, err, pgseed.ErrInvalidConfig)
		}
		return cfg, nil
	}

	cfg, err := config.Load(".")
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w: %w", config.ConfigFileName, err, pgseed.ErrInvalidConfig)
	}
	return cfg, nil
}

// restoreSection returns the restore settings of cfg, or zero values without a file.
func restoreSection(cfg *config.ProjectConfig) config.RestoreConfig {
	if cfg == nil {
		return config.RestoreConfig{}
	}
	return cfg.Restore
}

// resolveArchiveDir picks the directory for directory mode:
// argument > restore.archive_dir > $PGSEED_ARCHIVE_DIR > the container init default.
func resolveArchiveDir(arg string, cfg *config.ProjectConfig) string {
	return firstNonEmpty(arg, restoreSection(cfg).ArchiveDir, os.Getenv(EnvArchiveDir), pgseed.DefaultArchiveDir)
}

// resolvePattern picks the archive glob: flag > restore.pattern > *.tar.
func resolvePattern(flag string, cfg *config.ProjectConfig) string {
	return firstNonEmpty(flag, restoreSection(cfg).Pattern, pgseed.DefaultArchivePattern)
}

// resolveRestoreBinary follows --pg-restore > $PGSEED_PG_RESTORE > restore.pg_restore.
// An empty result lets the restore tool search PATH.
func resolveRestoreBinary(flag string, cfg *config.ProjectConfig) string {
	if flag != "" {
		return flag
	}
	if os.Getenv(restoretool.EnvRestoreBinary) != "" {
		return ""
	}
	return restoreSection(cfg).PgRestore
}

// buildSeedConfig builds a SeedConfig from the shared flags, the environment
// and pgseed.yaml. The caller fills in the archive selection.
func buildSeedConfig(cmd *cobra.Command, flags *seedFlagValues, verbose bool) (pgseed.SeedConfig, *config.ProjectConfig, error) {
	_ = godotenv.Load()

	projectCfg, err := loadProjectConfig(flags.configPath)
	if err != nil {
		return pgseed.SeedConfig{}, nil, err
	}
	restoreCfg := restoreSection(projectCfg)

	granularFlags := &db.GranularConnFlags{
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		SSLMode:  flags.sslMode,
	}
	cloudFlags := &db.CloudFlags{
		AWS:           flags.aws,
		AWSRegion:     flags.awsRegion,
		Azure:         flags.azure,
		AzureTenantID: flags.azureTenantID,
		AzureClientID: flags.azureClientID,
	}

	connConfig, maintenanceDB, err := db.ResolveConnectionParams(
		flags.connection,
		flags.maintenanceDB,
		granularFlags,
		cloudFlags,
		db.LoadFromEnvironment(),
		projectCfg,
	)
	if err != nil {
		return pgseed.SeedConfig{}, nil, err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved: %s\n", db.Redacted(connConfig))
		fmt.Fprintf(os.Stderr, "[VERBOSE] Auth Method: %s\n", connConfig.AuthMethod)
	}

	ifExists := restoreCfg.IfExists
	if cmd.Flags().Changed("if-exists") {
		ifExists = flags.ifExists
	}
	policy, err := pgseed.ParseExistingPolicy(ifExists)
	if err != nil {
		return pgseed.SeedConfig{}, nil, err
	}

	jobs := restoreCfg.Jobs
	if cmd.Flags().Changed("jobs") {
		jobs = flags.jobs
	}

	timeout := flags.timeout
	if !cmd.Flags().Changed("timeout") {
		timeout, err = projectCfg.TimeoutDuration()
		if err != nil {
			return pgseed.SeedConfig{}, nil, fmt.Errorf("%w: %w", err, pgseed.ErrInvalidConfig)
		}
	}

	cfg := pgseed.SeedConfig{
		MaintenanceDatabase: maintenanceDB,
		ConnectionString:    db.BuildConnectionString(connConfig),
		GrantTo:             firstNonEmpty(flags.grantTo, restoreCfg.GrantTo),
		IfExists:            policy,
		Restore: pgseed.RestoreOptions{
			Binary:       resolveRestoreBinary(flags.pgRestore, projectCfg),
			Jobs:         jobs,
			NoOwner:      flags.noOwner || restoreCfg.NoOwner,
			NoPrivileges: flags.noPrivileges || restoreCfg.NoPrivileges,
		},
		Timeout:           timeout,
		Verbose:           verbose,
		AuthMethod:        connConfig.AuthMethod,
		AWSRegion:         connConfig.AWSRegion,
		AzureTenantID:     connConfig.AzureTenantID,
		AzureClientID:     connConfig.AzureClientID,
		AzureClientSecret: connConfig.AzureClientSecret,
	}
	return cfg, projectCfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
