// Package contenthash computes content-only digests for change detection.
//
// Hashing covers the post-frontmatter body only, so metadata edits (tags,
// status, AI annotations) never look like content changes. Comparison is
// exact: a whitespace-only edit re-hashes differently and may trigger an
// unnecessary retranslation, which is preferred over silently missing a real
// change.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of body.
func Sum(body string) string {
	h := sha256.Sum256([]byte(body))
	return hex.EncodeToString(h[:])
}

// Short8 returns the first 8 hex characters of SHA-256(path + content).
// Used as the uniqueness suffix of canonical IDs; collisions are
// probabilistic but treated as impossible.
func Short8(path, content string) string {
	h := sha256.Sum256([]byte(path + content))
	return hex.EncodeToString(h[:])[:8]
}
