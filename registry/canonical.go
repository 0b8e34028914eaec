package registry

import (
	"regexp"
	"strings"
	"time"

	"github.com/contentops/polyglot/contenthash"
)

// canonicalIDPattern validates the slug-YYYYMMDD-hash8 format.
var canonicalIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*-\d{8}-[0-9a-f]{8}$`)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses runs of non-alphanumerics into hyphens.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return s
}

// MintID derives a canonical ID from a slug, the minting date, and the file's
// path plus raw content. The ID is immutable once assigned: renames and moves
// after minting never change it.
func MintID(slug string, now time.Time, path, content string) string {
	return Slugify(slug) + "-" + now.UTC().Format("20060102") + "-" + contenthash.Short8(path, content)
}

// ValidID reports whether id matches the canonical ID format.
func ValidID(id string) bool {
	return canonicalIDPattern.MatchString(id)
}
