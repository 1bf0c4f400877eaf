// Package files groups the filesystem-facing pieces of archive discovery.
//
//   - filesystem: filesystem abstraction (OS and in-memory)
//   - scanner: archive discovery and database name derivation
package files
