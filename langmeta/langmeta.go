// Package langmeta provides language metadata (native names) for the small
// fixed set of languages the pipeline supports, used in AI prompts and CLI
// output.
package langmeta

import "strings"

// Meta describes language display metadata.
type Meta struct {
	Name   string // English name, used in prompts
	Native string // native name, used in status output
}

// Registry contains metadata for the supported languages.
var Registry = map[string]Meta{
	"en": {Name: "English", Native: "English"},
	"de": {Name: "German", Native: "Deutsch"},
	"fr": {Name: "French", Native: "Français"},
	"es": {Name: "Spanish", Native: "Español"},
	"it": {Name: "Italian", Native: "Italiano"},
	"pt": {Name: "Portuguese", Native: "Português"},
	"ru": {Name: "Russian", Native: "Русский"},
	"ja": {Name: "Japanese", Native: "日本語"},
}

// Resolve returns metadata for a language code, falling back to the base
// language for locale variants ("de-AT" → "de"). The second return value is
// false for unknown codes.
func Resolve(code string) (Meta, bool) {
	if m, ok := Registry[code]; ok {
		return m, true
	}
	if i := strings.IndexAny(code, "-_"); i > 0 {
		if m, ok := Registry[code[:i]]; ok {
			return m, true
		}
	}
	return Meta{}, false
}

// Name returns the English name for a code, or the code itself if unknown.
func Name(code string) string {
	if m, ok := Resolve(code); ok {
		return m.Name
	}
	return code
}

// Known reports whether the code belongs to the supported set.
func Known(code string) bool {
	_, ok := Resolve(code)
	return ok
}
