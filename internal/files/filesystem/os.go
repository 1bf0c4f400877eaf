package filesystem

import (
	"fmt"
	"io"
	"os"
)

// OSFileSystem implements FileSystemProvider for the OS filesystem.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OS filesystem provider.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

func (p *OSFileSystem) ReadDir(path string) ([]FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	result := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to get file info for %s: %w", entry.Name(), err)
		}
		result = append(result, info)
	}

	return result, nil
}

// Stat follows symlinks, so a linked archive reports the target's size.
func (p *OSFileSystem) Stat(path string) (FileInfo, error) {
	return os.Stat(path)
}

func (p *OSFileSystem) Open(path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	return os.Open(path)
}
