package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// memoryFileInfo implements fs.FileInfo for in-memory entries
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return f.mode }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

type memoryEntry struct {
	info    *memoryFileInfo
	content []byte
}

// MemoryFileSystem implements FileSystemProvider in memory.
// Relative paths are resolved against the root given to NewMemoryFileSystem.
type MemoryFileSystem struct {
	mu      sync.RWMutex
	root    string
	entries map[string]*memoryEntry
}

// NewMemoryFileSystem creates an in-memory filesystem containing only root.
func NewMemoryFileSystem(root string) *MemoryFileSystem {
	mfs := &MemoryFileSystem{
		root:    path.Clean(filepath.ToSlash(root)),
		entries: make(map[string]*memoryEntry),
	}
	mfs.addDir(mfs.root)
	return mfs
}

// AddFile adds a file with the current time as its modification time.
func (mfs *MemoryFileSystem) AddFile(filePath string, content string) {
	mfs.AddFileWithTime(filePath, content, time.Now())
}

// AddFileWithTime adds a file, creating parent directories as needed.
func (mfs *MemoryFileSystem) AddFileWithTime(filePath string, content string, modTime time.Time) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	abs := mfs.resolve(filePath)
	mfs.entries[abs] = &memoryEntry{
		info: &memoryFileInfo{
			name:    path.Base(abs),
			size:    int64(len(content)),
			mode:    0644,
			modTime: modTime,
		},
		content: []byte(content),
	}
	mfs.addDir(path.Dir(abs))
}

// AddDir adds an empty directory.
func (mfs *MemoryFileSystem) AddDir(dirPath string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.addDir(mfs.resolve(dirPath))
}

func (mfs *MemoryFileSystem) addDir(abs string) {
	for {
		if _, ok := mfs.entries[abs]; ok {
			return
		}
		mfs.entries[abs] = &memoryEntry{
			info: &memoryFileInfo{
				name:    path.Base(abs),
				mode:    0755 | fs.ModeDir,
				modTime: time.Now(),
			},
		}
		parent := path.Dir(abs)
		if parent == abs {
			return
		}
		abs = parent
	}
}

func (mfs *MemoryFileSystem) resolve(p string) string {
	p = filepath.ToSlash(p)
	if p == "" || p == "." {
		return mfs.root
	}
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(mfs.root, p)
}

func (mfs *MemoryFileSystem) lookup(op, p string) (*memoryEntry, error) {
	e, ok := mfs.entries[mfs.resolve(p)]
	if !ok {
		return nil, &fs.PathError{Op: op, Path: p, Err: fs.ErrNotExist}
	}
	return e, nil
}

// ReadDir returns the direct children of dirPath sorted by name.
func (mfs *MemoryFileSystem) ReadDir(dirPath string) ([]FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	dir, err := mfs.lookup("readdir", dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if !dir.info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	abs := mfs.resolve(dirPath)
	var result []FileInfo
	for p, e := range mfs.entries {
		if p != abs && path.Dir(p) == abs {
			result = append(result, e.info)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result, nil
}

func (mfs *MemoryFileSystem) Stat(p string) (FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	e, err := mfs.lookup("stat", p)
	if err != nil {
		return nil, err
	}
	return e.info, nil
}

func (mfs *MemoryFileSystem) Open(p string) (io.ReadCloser, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	e, err := mfs.lookup("open", p)
	if err != nil {
		return nil, err
	}
	if e.info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", p)
	}
	return io.NopCloser(bytes.NewReader(e.content)), nil
}
