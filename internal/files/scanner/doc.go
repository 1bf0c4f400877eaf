// Package scanner discovers archive files and derives database names from them.
//
// Discovery is non-recursive and ordered by file name so that a directory of
// archives always restores in the same sequence. Hidden files and
// subdirectories are ignored.
//
// The scanner works against filesystem.FileSystemProvider, so tests run
// against an in-memory tree.
package scanner
