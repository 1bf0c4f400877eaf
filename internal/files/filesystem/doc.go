// Package filesystem abstracts the few filesystem calls archive discovery needs.
//
// Implementations:
//   - OSFileSystem: production implementation backed by package os
//   - MemoryFileSystem: in-memory implementation for tests
//
// Missing paths are reported with errors that satisfy errors.Is(err, fs.ErrNotExist)
// in both implementations.
package filesystem
