// Package checksum computes content digests.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-git/go-git/v5/plumbing"
)

// Sum returns the hex-encoded SHA-256 digest of data. The index uses it to
// detect changed files.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Blob returns the git blob hash of data, the value hosting APIs report as
// a file's sha.
func Blob(data []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, data).String()
}
