package scanner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// DatabaseNameFromArchive strips the directory and the final extension:
// "/archives/dvdrental.tar" becomes "dvdrental", "sales.2024.dump" becomes "sales.2024".
func DatabaseNameFromArchive(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ValidateDatabaseName checks that name can be used as a quoted identifier.
// PostgreSQL silently truncates longer names, which would let two archives
// collide, so over-length names are rejected.
func ValidateDatabaseName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("database name is empty: %w", pgseed.ErrInvalidConfig)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("database name %q contains a NUL byte: %w", name, pgseed.ErrInvalidConfig)
	case len(name) > pgseed.MaxIdentifierLength:
		return fmt.Errorf("database name %q is %d bytes, longer than the %d byte limit: %w",
			name, len(name), pgseed.MaxIdentifierLength, pgseed.ErrInvalidConfig)
	}
	return nil
}
