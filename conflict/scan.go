package conflict

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/contentops/polyglot/contenthash"
	"github.com/contentops/polyglot/mdfile"
	"github.com/contentops/polyglot/registry"
)

// Scan compares registry translation state to current file hashes and
// returns one report per conflicted canonical-ID + language pair:
//
//   - a record still marked stale (unresolved retranslation debt)
//   - a record marked current whose target file hash no longer matches the
//     recorded translation hash (edited outside the pipeline)
//   - a record whose target file is gone
//
// Raising and deduplicating the reports is the caller's job.
func Scan(reg *registry.Registry, root string) []Report {
	var reports []Report

	for _, id := range reg.IDs() {
		entry, _ := reg.Get(id)
		for lang, rec := range entry.Translations {
			if r, ok := checkRecord(entry, lang, rec, root); ok {
				reports = append(reports, r)
			}
		}
	}
	return reports
}

func checkRecord(entry *registry.Entry, lang string, rec *registry.TranslationRecord, root string) (Report, bool) {
	switch rec.Status {
	case registry.StatusStale:
		return Report{
			CanonicalID: entry.CanonicalID,
			Language:    lang,
			Kind:        KindStale,
			Title:       fmt.Sprintf("Stale translation: %s (%s)", entry.Title, lang),
			Body: fmt.Sprintf("The %s translation of `%s` at `%s` was produced from an older source body and needs retranslation.",
				lang, entry.CanonicalID, rec.Path),
		}, true

	case registry.StatusCurrent:
		abs := filepath.Join(root, filepath.FromSlash(rec.Path))
		doc, err := mdfile.ParseFile(abs)
		if err != nil {
			if os.IsNotExist(unwrapPathError(err)) {
				return Report{
					CanonicalID: entry.CanonicalID,
					Language:    lang,
					Kind:        KindMissingFile,
					Title:       fmt.Sprintf("Missing translation file: %s (%s)", entry.Title, lang),
					Body: fmt.Sprintf("The registry records a current %s translation of `%s` at `%s`, but the file does not exist.",
						lang, entry.CanonicalID, rec.Path),
				}, true
			}
			return Report{
				CanonicalID: entry.CanonicalID,
				Language:    lang,
				Kind:        KindDrift,
				Title:       fmt.Sprintf("Unreadable translation file: %s (%s)", entry.Title, lang),
				Body:        fmt.Sprintf("The %s translation of `%s` at `%s` cannot be parsed: %v", lang, entry.CanonicalID, rec.Path, err),
			}, true
		}
		if rec.TranslationHash != "" && contenthash.Sum(doc.Body) != rec.TranslationHash {
			return Report{
				CanonicalID: entry.CanonicalID,
				Language:    lang,
				Kind:        KindDrift,
				Title:       fmt.Sprintf("Translation drift: %s (%s)", entry.Title, lang),
				Body: fmt.Sprintf("The %s translation of `%s` at `%s` was modified outside the pipeline: its body hash no longer matches the registry.",
					lang, entry.CanonicalID, rec.Path),
			}, true
		}
	}
	return Report{}, false
}

// unwrapPathError digs the underlying error out of wrapped read failures so
// os.IsNotExist works.
func unwrapPathError(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := u.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}
