package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vvka-141/pgseed/internal/checksum"
	"github.com/vvka-141/pgseed/internal/files/filesystem"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Scanner discovers archives on a filesystem.
// Safe for concurrent use if the provider and calculator are.
type Scanner struct {
	calculator checksum.Calculator
	fsProvider filesystem.FileSystemProvider
}

// NewScanner creates a scanner over the OS filesystem.
func NewScanner() *Scanner {
	return NewScannerWithFS(checksum.New(), filesystem.NewOSFileSystem())
}

// NewScannerWithFS creates a scanner with a custom calculator and filesystem.
// Panics if either is nil.
func NewScannerWithFS(calculator checksum.Calculator, fsProvider filesystem.FileSystemProvider) *Scanner {
	if calculator == nil {
		panic("calculator cannot be nil")
	}
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Scanner{
		calculator: calculator,
		fsProvider: fsProvider,
	}
}

// Scan returns the archives directly inside dir whose names match pattern.
// An empty pattern means pgseed.DefaultArchivePattern. A missing dir wraps
// pgseed.ErrArchiveNotFound; an empty one yields no archives and no error.
func (s *Scanner) Scan(dir, pattern string) ([]pgseed.Archive, error) {
	if pattern == "" {
		pattern = pgseed.DefaultArchivePattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid archive pattern %q: %w", pattern, pgseed.ErrInvalidConfig)
	}

	infos, err := s.fsProvider.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("archive directory %s: %w", dir, pgseed.ErrArchiveNotFound)
		}
		return nil, fmt.Errorf("failed to scan archive directory %s: %w", dir, err)
	}

	var archives []pgseed.Archive
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if ok, _ := filepath.Match(pattern, name); !ok {
			continue
		}
		archives = append(archives, newArchive(filepath.Join(dir, name), info))
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Name < archives[j].Name
	})
	return archives, nil
}

// Resolve describes the archive at path.
func (s *Scanner) Resolve(path string) (pgseed.Archive, error) {
	info, err := s.fsProvider.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pgseed.Archive{}, fmt.Errorf("%s: %w", path, pgseed.ErrArchiveNotFound)
		}
		return pgseed.Archive{}, fmt.Errorf("failed to stat archive %s: %w", path, err)
	}
	if info.IsDir() {
		return pgseed.Archive{}, fmt.Errorf("%s is a directory, not an archive (use restore-all): %w", path, pgseed.ErrInvalidConfig)
	}
	return newArchive(path, info), nil
}

// Checksum hashes the archive and stores the digest in a.Checksum.
func (s *Scanner) Checksum(a *pgseed.Archive) error {
	f, err := s.fsProvider.Open(a.Path)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", a.Path, err)
	}
	defer f.Close()

	sum, err := s.calculator.Sum(f)
	if err != nil {
		return fmt.Errorf("archive %s: %w", a.Path, err)
	}
	a.Checksum = sum
	return nil
}

func newArchive(path string, info filesystem.FileInfo) pgseed.Archive {
	return pgseed.Archive{
		Path:       path,
		Name:       info.Name(),
		Database:   DatabaseNameFromArchive(path),
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

// Verify Scanner implements the interface at compile time
var _ pgseed.ArchiveScanner = (*Scanner)(nil)
