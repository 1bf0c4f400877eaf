package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Calculator computes content fingerprints.
type Calculator interface {
	// Sum consumes r and returns the hex-encoded digest.
	Sum(r io.Reader) (string, error)

	// SumBytes returns the hex-encoded digest of content.
	SumBytes(content []byte) string
}

// SHA256 implements Calculator using SHA-256. It is a zero-size value type.
type SHA256 struct{}

// New creates a new SHA-256 based calculator.
func New() SHA256 {
	return SHA256{}
}

func (c SHA256) Sum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c SHA256) SumBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Short returns the first 12 characters of a digest for display.
func Short(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}
