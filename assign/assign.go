// Package assign scans the content tree, mints canonical IDs for files that
// lack one, writes them back into the files' frontmatter, and seeds
// provisional registry entries.
//
// A freshly seen file is treated as an "original" — a heuristic, since no
// translation-relationship data exists at minting time. Ambiguous cases
// (multiple files sharing a slug) are flagged for manual classification, not
// auto-resolved.
package assign

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/contentops/polyglot/contenthash"
	"github.com/contentops/polyglot/langmeta"
	"github.com/contentops/polyglot/mdfile"
	"github.com/contentops/polyglot/registry"
)

// skipDirs contains directory names excluded from content scanning.
var skipDirs = map[string]bool{
	".git":         true,
	".polyglot":    true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"public":       true,
}

// Options configures an assigner run.
type Options struct {
	Registry *registry.Registry
	// Root is the project root.
	Root string
	// ContentRoots are content directories relative to Root.
	ContentRoots []string
	// DefaultLanguage is assumed when neither path nor frontmatter names one.
	DefaultLanguage string
	// Now supplies the clock (defaults to time.Now).
	Now func() time.Time
	// OnLog emits log messages (nil = silent).
	OnLog func(format string, args ...any)
}

// SlugGroup is a set of unassigned files sharing one slug — ambiguous, left
// for a human to classify.
type SlugGroup struct {
	Slug      string
	Paths     []string
	Languages []string
}

// Result is the assigner outcome.
type Result struct {
	Scanned   int
	Assigned  int
	Seeded    int
	Untouched int
	Malformed int
	Ambiguous []SlugGroup
	// RegistryDirty is true when entries were added and the registry needs
	// saving.
	RegistryDirty bool
}

type scannedFile struct {
	relPath string
	lang    string
	slug    string
	raw     []byte
	doc     *mdfile.Document
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run performs one assigner pass. A malformed file is logged and skipped; it
// never aborts the scan.
func Run(opts Options) (*Result, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("assign: registry is required")
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	res := &Result{}

	var withID []scannedFile
	unassigned := make(map[string][]scannedFile) // slug → files lacking an ID

	for _, root := range opts.ContentRoots {
		base := filepath.Join(opts.Root, root)
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil // unreadable entries are skipped
			}
			if d.IsDir() {
				if skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(d.Name(), ".md") {
				return nil
			}
			res.Scanned++

			raw, err := os.ReadFile(path)
			if err != nil {
				opts.log("[WARN] skipping %s: %v", path, err)
				res.Malformed++
				return nil
			}
			doc, err := mdfile.Parse(raw)
			if err != nil {
				opts.log("[WARN] skipping malformed file %s: %v", path, err)
				res.Malformed++
				return nil
			}

			rel, err := filepath.Rel(opts.Root, path)
			if err != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			f := scannedFile{
				relPath: rel,
				lang:    detectLanguage(rel, doc, opts.DefaultLanguage),
				slug:    registry.Slugify(strings.TrimSuffix(d.Name(), ".md")),
				raw:     raw,
				doc:     doc,
			}
			if doc.CanonicalID() != "" {
				withID = append(withID, f)
			} else {
				unassigned[f.slug] = append(unassigned[f.slug], f)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", base, err)
		}
	}

	now := opts.now()

	// Files already carrying an ID are untouched; seed registry entries that
	// are missing (e.g. a fresh registry over an already-assigned tree).
	// Originals seed before translations so a translation's unit exists by
	// the time it attaches.
	sort.SliceStable(withID, func(i, j int) bool {
		return withID[i].doc.TranslationOf() == "" && withID[j].doc.TranslationOf() != ""
	})
	for _, f := range withID {
		res.Untouched++
		if seedExisting(opts.Registry, f, now) {
			res.Seeded++
			res.RegistryDirty = true
		}
	}

	// Assign in sorted slug order for deterministic logs and commits.
	slugs := make([]string, 0, len(unassigned))
	for slug := range unassigned {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		group := unassigned[slug]
		if len(group) > 1 {
			sg := SlugGroup{Slug: slug}
			for _, f := range group {
				sg.Paths = append(sg.Paths, f.relPath)
				sg.Languages = append(sg.Languages, f.lang)
			}
			res.Ambiguous = append(res.Ambiguous, sg)
			opts.log("[WARN] ambiguous slug %q (%d files), needs manual classification", slug, len(group))
			continue
		}

		f := group[0]
		if err := assignOne(opts, f, now); err != nil {
			opts.log("[ERROR] assigning %s: %v", f.relPath, err)
			res.Malformed++
			continue
		}
		res.Assigned++
		res.Seeded++
		res.RegistryDirty = true
	}

	return res, nil
}

// assignOne mints an ID, writes it into the file, and seeds the provisional
// registry entry.
func assignOne(opts Options, f scannedFile, now time.Time) error {
	id := registry.MintID(f.slug, now, f.relPath, string(f.raw))

	f.doc.SetField(mdfile.FieldCanonicalID, id)
	if f.doc.Language() == "" {
		f.doc.SetField(mdfile.FieldLanguage, f.lang)
	}
	if err := f.doc.WriteFile(filepath.Join(opts.Root, filepath.FromSlash(f.relPath))); err != nil {
		return err
	}

	title := f.doc.Title()
	if title == "" {
		title = f.slug
	}
	opts.Registry.Put(&registry.Entry{
		CanonicalID:      id,
		OriginalPath:     f.relPath,
		OriginalLanguage: f.lang,
		Title:            title,
		LastModified:     now.UTC().Format(time.RFC3339),
		ContentHash:      contenthash.Sum(f.doc.Body),
	})
	opts.log("[INFO] assigned %s → %s", f.relPath, id)
	return nil
}

// seedExisting backfills a registry entry (or translation record) for a file
// that already carries a canonical ID. Returns true when the registry changed.
func seedExisting(reg *registry.Registry, f scannedFile, now time.Time) bool {
	id := f.doc.CanonicalID()

	if ref := f.doc.TranslationOf(); ref != "" {
		// The file is a translation; attach it to its unit when known.
		entry, ok := reg.Get(ref)
		if !ok || f.lang == entry.OriginalLanguage {
			return false
		}
		if _, exists := entry.Translations[f.lang]; exists {
			return false
		}
		_ = reg.SetTranslation(ref, f.lang, &registry.TranslationRecord{
			Path:            f.relPath,
			Status:          registry.StatusCurrent,
			TranslationHash: contenthash.Sum(f.doc.Body),
			SourceHash:      "", // unknown provenance; next detect run marks it stale
		})
		return true
	}

	if _, ok := reg.Get(id); ok {
		return false
	}
	title := f.doc.Title()
	if title == "" {
		title = f.slug
	}
	reg.Put(&registry.Entry{
		CanonicalID:      id,
		OriginalPath:     f.relPath,
		OriginalLanguage: f.lang,
		Title:            title,
		LastModified:     now.UTC().Format(time.RFC3339),
		ContentHash:      contenthash.Sum(f.doc.Body),
	})
	return true
}

// detectLanguage resolves a file's language: a known language code path
// segment wins, then the frontmatter language field, then the default.
func detectLanguage(relPath string, doc *mdfile.Document, fallback string) string {
	for _, seg := range strings.Split(relPath, "/") {
		if langmeta.Known(seg) && len(seg) <= 5 {
			return seg
		}
	}
	if lang := doc.Language(); lang != "" {
		return lang
	}
	return fallback
}
