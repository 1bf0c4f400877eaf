package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vvka-141/pgseed/internal/config"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U).
//
// Note: Password is NOT included as a CLI flag for security reasons.
// Use $PGPASSWORD, $POSTGRES_PASSWORD, or a connection string instead.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	SSLMode  string
}

// IsEmpty returns true if no granular connection flags were provided.
func (g *GranularConnFlags) IsEmpty() bool {
	return g == nil || (g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == "")
}

// CloudFlags selects token authentication. Client secrets are never flags;
// AZURE_CLIENT_SECRET is read from the environment.
type CloudFlags struct {
	AWS       bool
	AWSRegion string

	Azure         bool
	AzureTenantID string
	AzureClientID string
}

// EnvVars holds the environment consulted during resolution.
// See https://www.postgresql.org/docs/current/libpq-envars.html for the PG* set.
type EnvVars struct {
	PGHOST     string
	PGPORT     string
	PGUSER     string
	PGPASSWORD string
	PGDATABASE string
	PGSSLMODE  string

	// Set by the official postgres container image.
	POSTGRES_USER     string
	POSTGRES_PASSWORD string
	POSTGRES_DB       string

	PGSEED_CONNECTION_STRING string
	DATABASE_URL             string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment reads EnvVars from the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:                   os.Getenv("PGHOST"),
		PGPORT:                   os.Getenv("PGPORT"),
		PGUSER:                   os.Getenv("PGUSER"),
		PGPASSWORD:               os.Getenv("PGPASSWORD"),
		PGDATABASE:               os.Getenv("PGDATABASE"),
		PGSSLMODE:                os.Getenv("PGSSLMODE"),
		POSTGRES_USER:            os.Getenv("POSTGRES_USER"),
		POSTGRES_PASSWORD:        os.Getenv("POSTGRES_PASSWORD"),
		POSTGRES_DB:              os.Getenv("POSTGRES_DB"),
		PGSEED_CONNECTION_STRING: os.Getenv("PGSEED_CONNECTION_STRING"),
		DATABASE_URL:             os.Getenv("DATABASE_URL"),
		AWS_REGION:               os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:          os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:          os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:      os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnectionParams resolves the server connection and the maintenance database.
//
// Connection string precedence: --connection, then $PGSEED_CONNECTION_STRING,
// then $DATABASE_URL. The environment strings are ignored when granular
// flags are given; combining --connection with granular flags is an error.
//
// Field precedence otherwise: flag > environment > pgseed.yaml > default.
// User and password fall back to $POSTGRES_USER and $POSTGRES_PASSWORD, and
// the maintenance database to $POSTGRES_DB, matching the postgres image.
//
// The returned config's Database is the maintenance database.
func ResolveConnectionParams(
	connStringFlag string,
	maintenanceDBFlag string,
	granularFlags *GranularConnFlags,
	cloudFlags *CloudFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*pgseed.ConnectionConfig, string, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if cloudFlags == nil {
		cloudFlags = &CloudFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, "", fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://postgres@db:5432/postgres\"\n"+
				"  2. Granular flags: -h db -p 5432 -U postgres\n"+
				"  3. Environment variables: PGHOST, PGPORT, PGUSER, PGPASSWORD: %w",
			pgseed.ErrInvalidConfig,
		)
	}

	connStr := connStringFlag
	if connStr == "" && granularFlags.IsEmpty() {
		connStr = firstNonEmpty(envVars.PGSEED_CONNECTION_STRING, envVars.DATABASE_URL)
	}

	var cfg *pgseed.ConnectionConfig
	var err error
	if connStr != "" {
		cfg, err = resolveFromConnectionString(connStr, envVars)
	} else {
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, "", err
	}

	maintenanceDB := firstNonEmpty(
		maintenanceDBFlag,
		cfg.Database,
		envVars.PGDATABASE,
		envVars.POSTGRES_DB,
		pc.MaintenanceDatabase,
		pc.Database,
		pgseed.DefaultManagementDB,
	)
	cfg.Database = maintenanceDB

	applyProjectTLS(cfg, pc)

	if err := applyCloudAuth(cfg, cloudFlags, envVars, pc); err != nil {
		return nil, "", err
	}

	return cfg, maintenanceDB, nil
}

// resolveFromConnectionString parses connStr and fills what it leaves out
// from the environment, the way libpq does.
func resolveFromConnectionString(connStr string, env *EnvVars) (*pgseed.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %v: %w", err, pgseed.ErrInvalidConfig)
	}

	cfg.Host = firstNonEmpty(cfg.Host, env.PGHOST, "localhost")
	cfg.Username = firstNonEmpty(cfg.Username, env.PGUSER, env.POSTGRES_USER, currentOSUser())
	cfg.Password = firstNonEmpty(cfg.Password, env.PGPASSWORD, env.POSTGRES_PASSWORD)
	cfg.SSLMode = firstNonEmpty(cfg.SSLMode, env.PGSSLMODE, "prefer")

	return cfg, nil
}

// resolveFromGranularParams builds a config from flags, environment and pgseed.yaml.
func resolveFromGranularParams(flags *GranularConnFlags, env *EnvVars, pc config.ConnectionConfig) (*pgseed.ConnectionConfig, error) {
	cfg := &pgseed.ConnectionConfig{
		AuthMethod:       pgseed.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, env.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer between 1 and 65535: %w", env.PGPORT, pgseed.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstNonEmpty(flags.Username, env.PGUSER, env.POSTGRES_USER, pc.Username, currentOSUser())
	cfg.Password = firstNonEmpty(env.PGPASSWORD, env.POSTGRES_PASSWORD)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, env.PGSSLMODE, pc.SSLMode, "prefer")

	return cfg, nil
}

// applyProjectTLS copies certificate paths from pgseed.yaml unless already set.
func applyProjectTLS(cfg *pgseed.ConnectionConfig, pc config.ConnectionConfig) {
	if cfg.AdditionalParams == nil {
		cfg.AdditionalParams = make(map[string]string)
	}
	for key, value := range map[string]string{
		"sslcert":     pc.SSLCert,
		"sslkey":      pc.SSLKey,
		"sslrootcert": pc.SSLRootCert,
	} {
		if value == "" {
			continue
		}
		if _, set := cfg.AdditionalParams[key]; !set {
			cfg.AdditionalParams[key] = value
		}
	}
}

// ParseAuthMethod maps a pgseed.yaml auth_method value to an AuthMethod.
func ParseAuthMethod(s string) (pgseed.AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return pgseed.AuthMethodStandard, nil
	case "aws", "aws_iam", "aws-iam":
		return pgseed.AuthMethodAWSIAM, nil
	case "azure", "azure_entra_id", "entra":
		return pgseed.AuthMethodAzureEntraID, nil
	}
	return pgseed.AuthMethodStandard, fmt.Errorf("auth_method %q: %w", s, pgseed.ErrUnsupportedAuthMethod)
}

// applyCloudAuth switches cfg to token authentication when requested by flag or pgseed.yaml.
// Cloud environment variables only supply values; they never switch the method on.
func applyCloudAuth(cfg *pgseed.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	method, err := ParseAuthMethod(pc.AuthMethod)
	if err != nil {
		return err
	}

	useAWS := flags.AWS || method == pgseed.AuthMethodAWSIAM
	useAzure := flags.Azure || flags.AzureTenantID != "" || flags.AzureClientID != "" ||
		method == pgseed.AuthMethodAzureEntraID

	switch {
	case useAWS && useAzure:
		return fmt.Errorf("AWS IAM and Azure Entra ID authentication are mutually exclusive: %w", pgseed.ErrInvalidConfig)

	case useAWS:
		cfg.AuthMethod = pgseed.AuthMethodAWSIAM
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
		if cfg.AWSRegion == "" {
			return fmt.Errorf("AWS IAM auth requires a region (use --aws-region or $AWS_REGION): %w", pgseed.ErrInvalidConfig)
		}

	case useAzure:
		cfg.AuthMethod = pgseed.AuthMethodAzureEntraID
		cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	}

	if cfg.AuthMethod != pgseed.AuthMethodStandard {
		// a static password would be ignored; drop it so it never reaches a child process
		cfg.Password = ""
	}
	return nil
}

func currentOSUser() string {
	return firstNonEmpty(os.Getenv("USER"), os.Getenv("USERNAME"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
