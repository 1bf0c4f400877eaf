package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/pgseed/internal/checksum"
	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/internal/files/scanner"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// appNamePrefix tags server sessions and pg_restore connections with the run ID.
const appNamePrefix = "pgseed/"

// openDBFunc connects through a Connector and returns the connection with its cleanup.
type openDBFunc func(ctx context.Context, connector pgseed.Connector) (pgseed.DBConnection, func(), error)

// ProgressFunc starts a progress indicator for a long step. The returned function
// ends it with the step's result.
type ProgressFunc func(label string) func(result string, err error)

// SeedService implements the Seeder interface.
// Thread-Safety: NOT safe for concurrent Seed() calls on the same instance.
type SeedService struct {
	connectorFactory   pgseed.ConnectorFactory
	credentialsFactory pgseed.CredentialsFactory
	approver           pgseed.Approver
	logger             pgseed.Logger
	scanner            pgseed.ArchiveScanner
	dbManager          pgseed.DatabaseManager
	restorer           pgseed.Restorer

	openDB   openDBFunc
	progress ProgressFunc
	newRunID func() string
	now      func() time.Time
}

// SeedOption configures a SeedService.
type SeedOption func(*SeedService)

// WithProgress shows fn's indicator while pg_restore runs.
func WithProgress(fn ProgressFunc) SeedOption {
	return func(s *SeedService) { s.progress = fn }
}

// NewSeedService creates a new SeedService with all dependencies injected.
// Panics on nil dependencies: those are wiring mistakes, not runtime conditions.
func NewSeedService(
	connectorFactory pgseed.ConnectorFactory,
	credentialsFactory pgseed.CredentialsFactory,
	approver pgseed.Approver,
	logger pgseed.Logger,
	archiveScanner pgseed.ArchiveScanner,
	dbManager pgseed.DatabaseManager,
	restorer pgseed.Restorer,
	opts ...SeedOption,
) *SeedService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if credentialsFactory == nil {
		panic("credentialsFactory cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if archiveScanner == nil {
		panic("archiveScanner cannot be nil")
	}
	if dbManager == nil {
		panic("dbManager cannot be nil")
	}
	if restorer == nil {
		panic("restorer cannot be nil")
	}

	s := &SeedService{
		connectorFactory:   connectorFactory,
		credentialsFactory: credentialsFactory,
		approver:           approver,
		logger:             logger,
		scanner:            archiveScanner,
		dbManager:          dbManager,
		restorer:           restorer,
		openDB:             openPool,
		newRunID:           uuid.NewString,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func openPool(ctx context.Context, connector pgseed.Connector) (pgseed.DBConnection, func(), error) {
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return db.NewPoolAdapter(pool), pool.Close, nil
}

// Plan resolves archives and target databases without contacting the server.
func (s *SeedService) Plan(config pgseed.SeedConfig) ([]pgseed.PlanEntry, error) {
	if err := config.ValidateSources(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var archives []pgseed.Archive
	if config.IsDirectoryMode() {
		found, err := s.scanner.Scan(config.ArchiveDir, config.Pattern)
		if err != nil {
			return nil, err
		}
		archives = found
	} else {
		for _, path := range config.Archives {
			a, err := s.scanner.Resolve(path)
			if err != nil {
				return nil, err
			}
			archives = append(archives, a)
		}
	}

	entries := make([]pgseed.PlanEntry, 0, len(archives))
	claimed := make(map[string]string, len(archives))
	for _, a := range archives {
		target := a.Database
		if config.DatabaseName != "" {
			target = config.DatabaseName
		}
		if err := scanner.ValidateDatabaseName(target); err != nil {
			return nil, fmt.Errorf("archive %q: %w", a.Path, err)
		}
		if previous, dup := claimed[target]; dup {
			return nil, fmt.Errorf("archives %q and %q both restore into database %q: %w",
				previous, a.Path, target, pgseed.ErrInvalidConfig)
		}
		claimed[target] = a.Path
		entries = append(entries, pgseed.PlanEntry{Archive: a, Database: target})
	}
	return entries, nil
}

// Seed executes the plan sequentially and stops at the first failure.
// The returned Summary covers the entries completed before any error.
func (s *SeedService) Seed(ctx context.Context, config pgseed.SeedConfig) (summary pgseed.Summary, err error) {
	start := s.now()
	summary.RunID = s.newRunID()
	defer func() { summary.Duration = s.now().Sub(start) }()

	if err := config.Validate(); err != nil {
		return summary, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	plan, err := s.Plan(config)
	if err != nil {
		return summary, err
	}
	if len(plan) == 0 {
		pattern := config.Pattern
		if pattern == "" {
			pattern = pgseed.DefaultArchivePattern
		}
		s.logger.Info("No archives matching %q in %s; nothing to restore", pattern, config.ArchiveDir)
		return summary, nil
	}

	restoreBinary, err := s.restorer.Available()
	if err != nil {
		return summary, err
	}
	s.logger.Verbose("Using %s", restoreBinary)

	connConfig, err := s.connectionConfig(config, summary.RunID)
	if err != nil {
		return summary, err
	}

	credentials, err := s.credentialsFactory(connConfig)
	if err != nil {
		return summary, fmt.Errorf("failed to set up %s authentication: %w", connConfig.AuthMethod, err)
	}

	grantTo := config.GrantTo
	if grantTo == "" {
		grantTo = connConfig.Username
	}

	s.logger.Verbose("Run %s: %d archive(s), connecting to %s", summary.RunID, len(plan), db.Redacted(db.WithDatabase(connConfig, config.MaintenanceDatabase)))

	maintenance := s.connectorFactory(db.WithDatabase(connConfig, config.MaintenanceDatabase), credentials)
	conn, cleanup, err := s.openDB(ctx, maintenance)
	if err != nil {
		return summary, fmt.Errorf("failed to connect to maintenance database %q: %w", config.MaintenanceDatabase, err)
	}
	defer cleanup()

	if version, err := s.dbManager.ServerVersion(ctx, conn); err != nil {
		s.logger.Verbose("Could not read server version: %v", err)
	} else {
		s.logger.Info("Connected to %s", version)
	}

	run := &seedRun{
		service:     s,
		config:      config,
		conn:        conn,
		maintenance: maintenance,
		credentials: credentials,
		connConfig:  connConfig,
		grantTo:     grantTo,
	}

	for i, entry := range plan {
		s.logger.Info("[%d/%d] %s → %s", i+1, len(plan), entry.Archive.Name, entry.Database)

		result, skipped, err := run.restoreEntry(ctx, entry)
		if err != nil {
			return summary, fmt.Errorf("archive %q into database %q: %w", entry.Archive.Path, entry.Database, err)
		}
		if skipped {
			summary.Skipped = append(summary.Skipped, entry.Database)
			continue
		}
		summary.Restored = append(summary.Restored, result)
	}

	return summary, nil
}

// connectionConfig parses the connection string and applies the run's
// authentication settings and application name.
func (s *SeedService) connectionConfig(config pgseed.SeedConfig, runID string) (*pgseed.ConnectionConfig, error) {
	connConfig, err := db.ParseConnectionString(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %v: %w", err, pgseed.ErrInvalidConfig)
	}

	if connConfig.AppName == "" {
		connConfig.AppName = appNamePrefix + shortRunID(runID)
	}

	connConfig.AuthMethod = config.AuthMethod
	connConfig.AWSRegion = config.AWSRegion
	connConfig.AzureTenantID = config.AzureTenantID
	connConfig.AzureClientID = config.AzureClientID
	connConfig.AzureClientSecret = config.AzureClientSecret
	if connConfig.AuthMethod != pgseed.AuthMethodStandard {
		connConfig.Password = ""
	}

	return connConfig, nil
}

func shortRunID(runID string) string {
	if i := strings.IndexByte(runID, '-'); i > 0 {
		return runID[:i]
	}
	return runID
}

// seedRun holds the state shared by the entries of one Seed call.
type seedRun struct {
	service     *SeedService
	config      pgseed.SeedConfig
	conn        pgseed.DBConnection
	maintenance pgseed.Connector
	credentials pgseed.Credentials
	connConfig  *pgseed.ConnectionConfig
	grantTo     string
}

func (r *seedRun) restoreEntry(ctx context.Context, entry pgseed.PlanEntry) (pgseed.RestoreResult, bool, error) {
	s := r.service
	name := entry.Database
	started := s.now()

	if r.config.Verbose {
		archive := entry.Archive
		if err := s.scanner.Checksum(&archive); err != nil {
			s.logger.Verbose("Could not checksum %s: %v", archive.Path, err)
		} else {
			s.logger.Verbose("%s sha256 %s", archive.Name, checksum.Short(archive.Checksum))
		}
	}

	exists, err := s.dbManager.Exists(ctx, r.conn, name)
	if err != nil {
		return pgseed.RestoreResult{}, false, err
	}

	if exists {
		switch r.config.IfExists {
		case pgseed.IfExistsSkip:
			s.logger.Info("Database %q already exists; skipping %s", name, entry.Archive.Name)
			return pgseed.RestoreResult{}, true, nil
		case pgseed.IfExistsOverwrite:
			if err := r.dropExisting(ctx, name); err != nil {
				return pgseed.RestoreResult{}, false, err
			}
		default:
			return pgseed.RestoreResult{}, false, fmt.Errorf(
				"database %q already exists (use --if-exists=skip to keep it or --if-exists=overwrite to replace it): %w",
				name, pgseed.ErrDatabaseExists)
		}
	}

	s.logger.Verbose("Creating database %q", name)
	if err := s.dbManager.Create(ctx, r.conn, name); err != nil {
		return pgseed.RestoreResult{}, false, err
	}

	s.logger.Verbose("Granting all privileges on %q to %q", name, r.grantTo)
	if err := s.dbManager.Grant(ctx, r.conn, name, r.grantTo); err != nil {
		return pgseed.RestoreResult{}, false, err
	}

	if err := r.runRestore(ctx, entry); err != nil {
		s.logger.Error("Database %q was created but is incomplete; rerun with --if-exists=overwrite after fixing the cause", name)
		return pgseed.RestoreResult{}, false, err
	}

	tables, err := r.countTables(ctx, name)
	if err != nil {
		return pgseed.RestoreResult{}, false, err
	}

	result := pgseed.RestoreResult{
		Database: name,
		Archive:  entry.Archive.Path,
		Tables:   tables,
		Duration: s.now().Sub(started),
	}
	s.logger.Info("✓ Restored %s into %q (%d tables)", entry.Archive.Name, name, tables)
	return result, false, nil
}

func (r *seedRun) dropExisting(ctx context.Context, name string) error {
	s := r.service

	if err := validateOverwriteTarget(name, r.config.MaintenanceDatabase); err != nil {
		return err
	}

	s.logger.Verbose("Database %q exists. Requesting approval for overwrite.", name)
	approved, err := s.approver.RequestApproval(ctx, name)
	if err != nil {
		return fmt.Errorf("approval request failed: %w", err)
	}
	if !approved {
		return fmt.Errorf("overwrite of database %q: %w", name, pgseed.ErrApprovalDenied)
	}

	s.logger.Verbose("Terminating all connections to database %q", name)
	if err := s.dbManager.TerminateConnections(ctx, r.conn, name); err != nil {
		return err
	}

	s.logger.Verbose("Dropping database %q", name)
	return s.dbManager.Drop(ctx, r.conn, name)
}

func (r *seedRun) runRestore(ctx context.Context, entry pgseed.PlanEntry) error {
	s := r.service

	password, err := r.credentials.Password(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain password for pg_restore: %w", err)
	}
	connection := db.WithDatabase(r.connConfig, entry.Database)
	connection.Password = password

	var stop func(string, error)
	if s.progress != nil {
		stop = s.progress(fmt.Sprintf("Restoring %s into %s", entry.Archive.Name, entry.Database))
	}

	err = s.restorer.Restore(ctx, pgseed.RestoreRequest{
		ArchivePath: entry.Archive.Path,
		Database:    entry.Database,
		Connection:  connection,
	})

	if stop != nil {
		stop(fmt.Sprintf("Restored %s into %s", entry.Archive.Name, entry.Database), err)
	}
	return err
}

func (r *seedRun) countTables(ctx context.Context, name string) (int, error) {
	s := r.service

	conn, cleanup, err := s.openDB(ctx, r.maintenance.ForDatabase(name))
	if err != nil {
		return 0, fmt.Errorf("failed to connect to restored database: %w", err)
	}
	defer cleanup()

	return s.dbManager.CountTables(ctx, conn)
}

func validateOverwriteTarget(target, maintenanceDB string) error {
	if target == maintenanceDB {
		return fmt.Errorf(
			"cannot overwrite database %q: it is the maintenance database pgseed connects to. "+
				"Choose another with --maintenance-db: %w",
			target, pgseed.ErrInvalidConfig,
		)
	}
	if target == "template0" || target == "template1" {
		return fmt.Errorf("cannot overwrite database %q: PostgreSQL template databases cannot be dropped: %w",
			target, pgseed.ErrInvalidConfig)
	}
	return nil
}

// Verify SeedService implements the Seeder interface at compile time
var _ pgseed.Seeder = (*SeedService)(nil)
