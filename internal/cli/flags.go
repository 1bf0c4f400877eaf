package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// seedFlagValues holds the flags shared by restore and restore-all.
type seedFlagValues struct {
	connection, host, username, sslMode, maintenanceDB string
	port                                               int
	aws                                                bool
	awsRegion                                          string
	azure                                              bool
	azureTenantID, azureClientID                       string

	grantTo, ifExists string
	force             bool

	jobs                  int
	noOwner, noPrivileges bool
	pgRestore             string

	timeout    time.Duration
	configPath string
}

var seedFlags seedFlagValues

// registerSeedFlags binds the shared connection and restore flags to cmd.
func registerSeedFlags(cmd *cobra.Command, v *seedFlagValues) {
	f := cmd.Flags()

	// Connection string flag (mutually exclusive with granular flags)
	f.StringVar(&v.connection, "connection", "",
		"PostgreSQL connection string (URI or key=value format).\n"+
			"Its database is used as the maintenance database.\n"+
			"Mutually exclusive with granular flags (--host, --port, --username, --sslmode).\n"+
			"Alternative: PGSEED_CONNECTION_STRING or DATABASE_URL environment variable.\n"+
			"Example: postgresql://postgres@localhost:5432/postgres")

	// Granular connection flags (PostgreSQL standard)
	// Precedence: flag > environment variable > pgseed.yaml > default
	f.StringVarP(&v.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $PGHOST > pgseed.yaml > localhost")
	f.IntVarP(&v.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $PGPORT > pgseed.yaml > 5432")
	f.StringVarP(&v.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER, $POSTGRES_USER or current OS user)")
	f.StringVar(&v.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")
	f.StringVar(&v.maintenanceDB, "maintenance-db", "",
		"Database to connect to for CREATE/DROP DATABASE\n"+
			"(default: connection string database, $PGDATABASE, $POSTGRES_DB, or postgres)")

	// Cloud authentication flags
	f.BoolVar(&v.aws, "aws", false,
		"Enable AWS RDS IAM authentication\n"+
			"Uses the default AWS credential chain to sign a token per connection")
	f.StringVar(&v.awsRegion, "aws-region", "",
		"AWS region for IAM tokens (overrides $AWS_REGION)")
	f.BoolVar(&v.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	f.StringVar(&v.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	f.StringVar(&v.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")

	// Database creation flags
	f.StringVar(&v.grantTo, "grant-to", "",
		"Role granted ALL PRIVILEGES on each new database (default: connecting user)\n"+
			"Use PUBLIC to grant to every role")
	f.StringVar(&v.ifExists, "if-exists", "",
		"What to do when a target database already exists: error|skip|overwrite\n"+
			"(default: error, or restore.if_exists in pgseed.yaml)")
	f.BoolVar(&v.force, "force", false,
		"Skip the interactive approval prompt for --if-exists overwrite\n"+
			"Required for overwrite in non-interactive runs")

	// pg_restore pass-through flags
	f.IntVar(&v.jobs, "jobs", 0,
		"Number of parallel pg_restore jobs (passed as --jobs; 0 leaves it unset)")
	f.BoolVar(&v.noOwner, "no-owner", false,
		"Pass --no-owner to pg_restore")
	f.BoolVar(&v.noPrivileges, "no-privileges", false,
		"Pass --no-privileges to pg_restore")
	f.StringVar(&v.pgRestore, "pg-restore", "",
		"pg_restore binary to run\n"+
			"Precedence: --pg-restore > $PGSEED_PG_RESTORE > pgseed.yaml > PATH")

	f.DurationVar(&v.timeout, "timeout", 0,
		"Upper bound for the whole run, 0 means no limit\n"+
			"Examples: 30s, 5m, 1h30m")
	registerConfigFlag(cmd, &v.configPath)
}

func registerConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "config", "",
		"Path to a pgseed.yaml project file (default: ./pgseed.yaml when present)")
}
