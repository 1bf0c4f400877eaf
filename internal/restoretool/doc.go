// Package restoretool runs pg_restore against a freshly created database.
//
// Connection parameters are passed as command line flags, while everything
// secret or TLS related (password, sslmode, certificate paths) is passed
// through the libpq environment variables of the child process, so no
// credential ever appears in argv or in process listings.
//
// The child's output is streamed line by line into the pgseed.Logger.
// The last stderr lines are kept and attached to the error when pg_restore
// exits with a non-zero status.
package restoretool
