// Package fileid derives a deterministic source ID from a file path for
// watched files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// SourceID returns a stable source ID for the given absolute path. The same
// path always yields the same ID, so re-ingesting a changed file updates its
// archive row instead of logging a new source.
func SourceID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
