// Package logging provides concrete implementations of the pgseed.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes formatted messages to stderr (or any io.Writer)
//   - NullLogger: Discards all messages (useful for testing)
//
// LineWriter adapts line-oriented child process output to a logger.
//
// All implementations are safe for concurrent use by multiple goroutines.
package logging
