// Package checksum fingerprints archive files.
//
// Archives can be several gigabytes, so hashing streams from an io.Reader
// rather than loading content into memory. The dry-run plan prints these
// fingerprints so operators can confirm which dump a container will load.
//
//	calc := checksum.New()
//	sum, err := calc.Sum(f)
//
// SHA256 is safe for concurrent use by multiple goroutines.
package checksum
