// Package manager provides server-level database operations for PostgreSQL.
//
// The manager creates, grants, inspects and drops whole databases:
//   - Checking database existence
//   - Creating a new, empty database
//   - Granting ALL PRIVILEGES on a database to a role
//   - Dropping a database after terminating its other sessions
//   - Reading the server version and counting restored tables
//
// Database and role names are quoted with pgx.Identifier.Sanitize(), so names
// containing spaces, quotes or semicolons are passed through verbatim rather
// than interpreted as SQL.
//
// # Example Usage
//
//	mgr := manager.New()
//
//	exists, err := mgr.Exists(ctx, conn, "sales")
//	if !exists {
//		err = mgr.Create(ctx, conn, "sales")
//		err = mgr.Grant(ctx, conn, "sales", "app")
//	}
package manager
