// Package fileid derives stable record ids from spool file paths, so a record file that
// omits ids keeps the same document identities every time it is rewritten.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
)

const hashLen = 16

// ForPath returns a stable id for the given path. Equivalent spellings of one path
// yield the same id.
func ForPath(path string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(path)))
	return hex.EncodeToString(hash[:])[:hashLen]
}

// ForRecord returns a stable id for the record at position index in path.
func ForRecord(path string, index int) string {
	return ForPath(path) + "-" + strconv.Itoa(index)
}

// Generator returns a function naming records of path by position.
func Generator(path string) func(index int) string {
	base := ForPath(path)
	return func(index int) string { return base + "-" + strconv.Itoa(index) }
}
