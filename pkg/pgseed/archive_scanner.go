package pgseed

// ArchiveScanner discovers archive files.
type ArchiveScanner interface {
	// Scan lists archives in dir whose base name matches pattern, sorted by name.
	// The scan is not recursive.
	Scan(dir, pattern string) ([]Archive, error)

	// Resolve describes a single archive file.
	// Returns an error wrapping ErrArchiveNotFound if the file does not exist.
	Resolve(path string) (Archive, error)

	// Checksum fills a.Checksum by hashing the file.
	Checksum(a *Archive) error
}
