// Package fileid provides deterministic identifiers for corpus files and runs.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/google/uuid"
)

const prefix = "doc:"

// DocID returns a stable document ID for the given absolute path: the prefix and
// the first 16 hex characters of the SHA-256 of the cleaned path.
func DocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:8])
}

// RunID returns a new random run identifier.
func RunID() string {
	return uuid.New().String()
}

// ValidRunID reports whether s parses as a run identifier.
func ValidRunID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
