// Package registry implements the canonical content registry — the persisted
// map from canonical IDs to content units and their translation records.
//
// The registry file is plain JSON, owned by exactly one pipeline process per
// run (guarded by a lock file, see lock.go). Durability beyond the atomic
// write is git's job: a corrupt registry is repaired from version control,
// never reconstructed heuristically.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/contentops/polyglot/mdfile"
	"github.com/contentops/polyglot/pipeerr"
)

// CurrentVersion is the registry file format version.
const CurrentVersion = 1

// Translation status values.
const (
	StatusCurrent = "current"
	StatusStale   = "stale"
	StatusMissing = "missing"
)

// TranslationRecord describes one translation of a content unit.
// At most one record exists per (canonicalId, language); a record never
// refers to the unit's original language.
type TranslationRecord struct {
	Path            string `json:"path"`
	Status          string `json:"status"`
	LastTranslated  string `json:"lastTranslated,omitempty"`
	TranslationHash string `json:"translationHash,omitempty"`
	// SourceHash is the source body hash this translation was produced from.
	// Staleness is detected by comparing it to the current source hash.
	SourceHash string `json:"sourceHash,omitempty"`
}

// Entry is one content unit: the original file plus all its translations.
type Entry struct {
	CanonicalID      string                        `json:"canonicalId"`
	OriginalPath     string                        `json:"originalPath"`
	OriginalLanguage string                        `json:"originalLanguage"`
	Title            string                        `json:"title,omitempty"`
	LastModified     string                        `json:"lastModified"`
	ContentHash      string                        `json:"contentHash"`
	Translations     map[string]*TranslationRecord `json:"translations"`
}

// Registry is the full registry file.
type Registry struct {
	Version     int               `json:"version"`
	LastUpdated string            `json:"lastUpdated"`
	Entries     map[string]*Entry `json:"entries"`

	path string
}

// Load reads the registry from path. A missing file yields an empty registry;
// an unreadable or unparsable file is registry corruption, fatal for the run.
func Load(path string) (*Registry, error) {
	r := &Registry{
		Version: CurrentVersion,
		Entries: make(map[string]*Entry),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", pipeerr.ErrRegistryCorrupt, path, err)
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v (repair from version control)", pipeerr.ErrRegistryCorrupt, path, err)
	}
	r.path = path
	if r.Entries == nil {
		r.Entries = make(map[string]*Entry)
	}
	return r, nil
}

// Path returns the registry file path.
func (r *Registry) Path() string { return r.path }

// Save writes the registry atomically, stamping lastUpdated.
// JSON map keys marshal in sorted order, so repeated saves of an unchanged
// registry are byte-identical apart from the timestamp.
func (r *Registry) Save(now time.Time) error {
	if r.path == "" {
		return fmt.Errorf("registry path not set")
	}
	r.LastUpdated = now.UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	data = append(data, '\n')
	if err := mdfile.WriteAtomic(r.path, data); err != nil {
		return fmt.Errorf("%w: %v", pipeerr.ErrPersistence, err)
	}
	return nil
}

// Get returns the entry for a canonical ID.
func (r *Registry) Get(id string) (*Entry, bool) {
	e, ok := r.Entries[id]
	return e, ok
}

// Put inserts or replaces an entry.
func (r *Registry) Put(e *Entry) {
	if e.Translations == nil {
		e.Translations = make(map[string]*TranslationRecord)
	}
	r.Entries[e.CanonicalID] = e
}

// SetTranslation records a translation for a canonical ID.
func (r *Registry) SetTranslation(id, lang string, rec *TranslationRecord) error {
	e, ok := r.Entries[id]
	if !ok {
		return fmt.Errorf("unknown canonical ID %q", id)
	}
	if lang == e.OriginalLanguage {
		return fmt.Errorf("translation language %q equals original language of %q", lang, id)
	}
	if e.Translations == nil {
		e.Translations = make(map[string]*TranslationRecord)
	}
	e.Translations[lang] = rec
	return nil
}

// IDs returns all canonical IDs sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.Entries))
	for id := range r.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByPath returns the entry whose original file lives at path.
func (r *Registry) ByPath(path string) (*Entry, bool) {
	for _, e := range r.Entries {
		if e.OriginalPath == path {
			return e, true
		}
	}
	return nil, false
}
