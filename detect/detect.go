package detect

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/contentops/polyglot/contenthash"
	"github.com/contentops/polyglot/mdfile"
	"github.com/contentops/polyglot/registry"
)

// Options configures a detector run.
type Options struct {
	// Registry is the loaded canonical registry (mutated: current hashes and
	// stale statuses are refreshed during the scan).
	Registry *registry.Registry
	// Root is the project root; registry paths are relative to it.
	Root string
	// Languages is the supported language set. Targets are all languages
	// except each entry's original language.
	Languages []string
	// Policy is the override policy (nil = no overrides).
	Policy *Policy
	// Now supplies the clock (defaults to time.Now).
	Now func() time.Time
	// OnLog emits log messages (nil = silent).
	OnLog func(format string, args ...any)
}

// Result is the detector outcome.
type Result struct {
	Tasks      []Task
	Scanned    int
	Suppressed int
	Malformed  int
	// RegistryDirty is true when the scan refreshed hashes or statuses and
	// the registry needs saving.
	RegistryDirty bool
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

// Run walks every registry entry, re-hashes the source body, refreshes
// staleness, and emits one task per missing or stale translation. Output is
// sorted by (priority, canonicalId, targetLanguage) so that repeated runs
// over unchanged content are byte-identical.
func Run(opts Options) (*Result, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("detect: registry is required")
	}
	res := &Result{}
	now := opts.now()

	for _, id := range opts.Registry.IDs() {
		entry, _ := opts.Registry.Get(id)
		res.Scanned++

		doc, err := mdfile.ParseFile(filepath.Join(opts.Root, entry.OriginalPath))
		if err != nil {
			// A malformed or vanished source never aborts the scan.
			opts.log("[WARN] skipping %s: %v", entry.OriginalPath, err)
			res.Malformed++
			continue
		}

		hash := contenthash.Sum(doc.Body)
		if hash != entry.ContentHash {
			entry.ContentHash = hash
			entry.LastModified = now.UTC().Format(time.RFC3339)
			res.RegistryDirty = true
		}

		for _, lang := range opts.Languages {
			if lang == entry.OriginalLanguage {
				continue
			}
			task, ok := taskFor(entry, lang, hash)
			if !ok {
				continue
			}
			if task.Reason == ReasonStale {
				if rec := entry.Translations[lang]; rec != nil && rec.Status != registry.StatusStale {
					rec.Status = registry.StatusStale
					res.RegistryDirty = true
				}
			}
			if suppressed, reason := opts.Policy.Suppresses(task, now); suppressed {
				opts.log("[INFO] suppressed %s → %s: %s", task.CanonicalID, task.TargetLanguage, reason)
				res.Suppressed++
				continue
			}
			res.Tasks = append(res.Tasks, task)
		}
	}

	sort.Slice(res.Tasks, func(i, j int) bool {
		a, b := res.Tasks[i], res.Tasks[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.CanonicalID != b.CanonicalID {
			return a.CanonicalID < b.CanonicalID
		}
		return a.TargetLanguage < b.TargetLanguage
	})
	return res, nil
}

// taskFor decides whether entry needs work for lang given the current source
// hash.
func taskFor(entry *registry.Entry, lang, sourceHash string) (Task, bool) {
	task := Task{
		CanonicalID:       entry.CanonicalID,
		SourcePath:        entry.OriginalPath,
		SourceLanguage:    entry.OriginalLanguage,
		TargetLanguage:    lang,
		SourceContentHash: sourceHash,
	}

	rec := entry.Translations[lang]
	switch {
	case rec == nil || rec.Status == registry.StatusMissing:
		task.Reason = ReasonMissing
		task.Priority = PriorityMissing
		task.OutputPath = outputPathFor(entry.OriginalPath, entry.OriginalLanguage, lang)
		if rec != nil && rec.Path != "" {
			task.OutputPath = rec.Path
		}
		return task, true

	case rec.SourceHash != sourceHash:
		task.Reason = ReasonStale
		task.Priority = PriorityStale
		task.OutputPath = rec.Path
		task.ExistingTranslationHash = rec.TranslationHash
		return task, true
	}
	return Task{}, false
}
