package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo.
type FileInfo = fs.FileInfo

// FileSystemProvider reads directories and files.
type FileSystemProvider interface {
	// ReadDir returns the entries of a single directory, not recursing.
	ReadDir(path string) ([]FileInfo, error)

	// Stat returns file information for the given path.
	Stat(path string) (FileInfo, error)

	// Open opens a regular file for streaming reads.
	Open(path string) (io.ReadCloser, error)
}
