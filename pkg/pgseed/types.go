package pgseed

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// SeedConfig contains all parameters needed for a restore run.
// Exactly one of Archives (single-archive mode) or ArchiveDir (directory mode) is set.
type SeedConfig struct {
	// Archives lists explicit archive files to restore, in order.
	Archives []string

	// ArchiveDir is scanned for files matching Pattern (directory mode).
	ArchiveDir string

	// Pattern is the glob matched against archive base names in ArchiveDir.
	Pattern string

	// DatabaseName overrides the derived target database.
	// Only valid with exactly one explicit archive.
	DatabaseName string

	// MaintenanceDatabase is the database connected to for CREATE/GRANT/DROP DATABASE.
	MaintenanceDatabase string

	// ConnectionString is the PostgreSQL connection string for the server.
	ConnectionString string

	// GrantTo is the role granted ALL PRIVILEGES on each new database.
	// Empty means the connecting user.
	GrantTo string

	// IfExists decides what happens when a target database already exists.
	IfExists ExistingPolicy

	// Restore holds options passed through to the restore utility.
	Restore RestoreOptions

	// Timeout bounds the whole run; zero means no limit.
	Timeout time.Duration

	Verbose bool

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// AWSRegion is used when AuthMethod is AuthMethodAWSIAM.
	AWSRegion string

	// Azure Entra ID parameters (used when AuthMethod is AuthMethodAzureEntraID)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// RestoreOptions are passed through to the restore utility.
type RestoreOptions struct {
	// Binary is the restore executable name or path.
	Binary string

	// Jobs is the restore utility's own parallelism (--jobs); 0 leaves it unset.
	Jobs int

	NoOwner      bool
	NoPrivileges bool
}

// IsDirectoryMode reports whether the run scans ArchiveDir instead of explicit archives.
func (c *SeedConfig) IsDirectoryMode() bool {
	return len(c.Archives) == 0 && c.ArchiveDir != ""
}

// Validate checks if the SeedConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *SeedConfig) Validate() error {
	errs := c.sourceErrors()

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.MaintenanceDatabase == "" {
		errs = append(errs, fmt.Errorf("MaintenanceDatabase is required: %w", ErrInvalidConfig))
	}

	if !c.IfExists.IsValid() {
		errs = append(errs, fmt.Errorf("unknown if-exists policy %q (want error, skip or overwrite): %w", c.IfExists, ErrInvalidConfig))
	}

	if c.Restore.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ValidateSources checks only the archive selection, which is all a dry run needs.
func (c *SeedConfig) ValidateSources() error {
	return errors.Join(c.sourceErrors()...)
}

func (c *SeedConfig) sourceErrors() []error {
	var errs []error

	switch {
	case len(c.Archives) == 0 && c.ArchiveDir == "":
		errs = append(errs, fmt.Errorf("either an archive file or an archive directory is required: %w", ErrInvalidConfig))
	case len(c.Archives) > 0 && c.ArchiveDir != "":
		errs = append(errs, fmt.Errorf("archive files and archive directory are mutually exclusive: %w", ErrInvalidConfig))
	}

	if c.DatabaseName != "" && len(c.Archives) != 1 {
		errs = append(errs, fmt.Errorf("a database name override requires exactly one archive: %w", ErrInvalidConfig))
	}

	if c.IsDirectoryMode() {
		if _, err := filepath.Match(c.Pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("invalid archive pattern %q: %w", c.Pattern, ErrInvalidConfig))
		}
	}

	return errs
}

// ExistingPolicy controls what happens when a target database already exists.
type ExistingPolicy string

const (
	// IfExistsError fails the run; this matches a bare CREATE DATABASE.
	IfExistsError ExistingPolicy = "error"
	// IfExistsSkip leaves the database untouched and moves to the next archive.
	IfExistsSkip ExistingPolicy = "skip"
	// IfExistsOverwrite drops the database (after approval) and restores it again.
	IfExistsOverwrite ExistingPolicy = "overwrite"
)

// ParseExistingPolicy parses a policy name; empty means IfExistsError.
func ParseExistingPolicy(s string) (ExistingPolicy, error) {
	if s == "" {
		return IfExistsError, nil
	}
	p := ExistingPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown if-exists policy %q (want error, skip or overwrite): %w", s, ErrInvalidConfig)
	}
	return p, nil
}

// IsValid returns true for the three known policies.
func (p ExistingPolicy) IsValid() bool {
	switch p {
	case IfExistsError, IfExistsSkip, IfExistsOverwrite:
		return true
	}
	return false
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// AWSRegion is the region used to sign RDS IAM tokens.
	AWSRegion string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// Otherwise the DefaultAzureCredential chain is used.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// ConnectTimeoutSeconds renders ConnectTimeout in whole seconds for libpq.
// Fractions round up so a sub-second timeout never becomes 0, which libpq
// reads as "wait forever". It returns 0 when no timeout is set.
func (c *ConnectionConfig) ConnectTimeoutSeconds() int {
	if c.ConnectTimeout <= 0 {
		return 0
	}
	return int(math.Ceil(c.ConnectTimeout.Seconds()))
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS RDS IAM token as password
	AuthMethodAzureEntraID                   // Azure Entra ID token as password
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// Archive is a database dump file consumed by the restore utility.
type Archive struct {
	// Path is the archive path as given or discovered.
	Path string
	// Name is the file name without directory.
	Name string
	// Database is the name derived from Name by stripping its extension.
	Database   string
	SizeBytes  int64
	ModifiedAt time.Time
	// Checksum is the hex SHA-256 of the file, filled only on request.
	Checksum string
}

// PlanEntry pairs an archive with the database it is restored into.
type PlanEntry struct {
	Archive  Archive
	Database string
}

// RestoreResult describes one restored database.
type RestoreResult struct {
	Database string
	Archive  string
	Tables   int
	Duration time.Duration
}

// Summary is the outcome of a Seed run. On failure it holds what completed before the error.
type Summary struct {
	RunID    string
	Restored []RestoreResult
	Skipped  []string
	Duration time.Duration
}
