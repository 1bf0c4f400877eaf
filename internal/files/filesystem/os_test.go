package filesystem

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_ReadDir(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.tar"), []byte("a"), 0644)
	os.WriteFile(filepath.Join(dir, "b.tar"), []byte("bb"), 0644)
	os.Mkdir(filepath.Join(dir, "sub"), 0755)

	infos, err := NewOSFileSystem().ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("ReadDir() returned %d entries, want 3", len(infos))
	}

	// os.ReadDir sorts by file name
	if infos[0].Name() != "a.tar" || infos[1].Name() != "b.tar" || !infos[2].IsDir() {
		t.Errorf("unexpected entries: %s, %s, %s", infos[0].Name(), infos[1].Name(), infos[2].Name())
	}
}

func TestOSFileSystem_ReadDir_Nonexistent(t *testing.T) {
	_, err := NewOSFileSystem().ReadDir(filepath.Join(t.TempDir(), "nonexistent"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadDir(nonexistent) error = %v, want fs.ErrNotExist", err)
	}
}

func TestOSFileSystem_Stat(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "sales.tar")
	os.WriteFile(filePath, []byte("12345"), 0644)

	info, err := NewOSFileSystem().Stat(filePath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size() = %d, want 5", info.Size())
	}

	if _, err := NewOSFileSystem().Stat(filepath.Join(dir, "missing.tar")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat(missing) error = %v, want fs.ErrNotExist", err)
	}
}

func TestOSFileSystem_Open(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "sales.tar")
	os.WriteFile(filePath, []byte("archive"), 0644)

	fsys := NewOSFileSystem()

	rc, err := fsys.Open(filePath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "archive" {
		t.Errorf("Open() content = %q, want %q", data, "archive")
	}

	if _, err := fsys.Open(dir); err == nil {
		t.Error("Open(dir) should return error")
	}
}
