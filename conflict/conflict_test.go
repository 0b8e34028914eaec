// Package conflict tests.
package conflict

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contentops/polyglot/contenthash"
	"github.com/contentops/polyglot/registry"
)

func newReporter(t *testing.T) (*Reporter, string) {
	t.Helper()
	dir := t.TempDir()
	rp, err := NewReporter(dir, &FileSink{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	return rp, dir
}

func sampleReport() Report {
	return Report{
		CanonicalID: "post-20250101-abcd1234",
		Language:    "de",
		Kind:        KindRejected,
		Title:       "Rejected translation: post (de)",
		Body:        "Validation failed.",
	}
}

// ---------------------------------------------------------------------------
// Reporter
// ---------------------------------------------------------------------------

func TestRaise_CreatesReportFile(t *testing.T) {
	rp, dir := newReporter(t)
	created, err := rp.Raise(sampleReport(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("first raise must create")
	}
	if _, err := os.Stat(filepath.Join(dir, "post-20250101-abcd1234-de.md")); err != nil {
		t.Errorf("report file missing: %v", err)
	}
	if rp.OpenCount() != 1 {
		t.Errorf("OpenCount = %d, want 1", rp.OpenCount())
	}
}

func TestRaise_DeduplicatesWithinOneReporter(t *testing.T) {
	rp, _ := newReporter(t)
	if _, err := rp.Raise(sampleReport(), time.Now()); err != nil {
		t.Fatal(err)
	}
	created, err := rp.Raise(sampleReport(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second raise for the same key must not create")
	}
}

func TestRaise_DeduplicatesAcrossReloads(t *testing.T) {
	rp, dir := newReporter(t)
	if _, err := rp.Raise(sampleReport(), time.Now()); err != nil {
		t.Fatal(err)
	}

	// A later run loads the same state directory.
	rp2, err := NewReporter(dir, &FileSink{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	created, err := rp2.Raise(sampleReport(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("dedup state must survive a reload")
	}
}

func TestResolve_AllowsReRaise(t *testing.T) {
	rp, _ := newReporter(t)
	r := sampleReport()
	if _, err := rp.Raise(r, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := rp.Resolve(r.CanonicalID, r.Language); err != nil {
		t.Fatal(err)
	}
	if rp.OpenCount() != 0 {
		t.Errorf("OpenCount = %d after resolve", rp.OpenCount())
	}
	created, err := rp.Raise(r, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("recurrence after resolve must raise a fresh report")
	}
}

func TestResolve_UnknownKeyIsNoop(t *testing.T) {
	rp, _ := newReporter(t)
	if err := rp.Resolve("nothing-20250101-00000000", "de"); err != nil {
		t.Errorf("Resolve on unknown key: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Scan
// ---------------------------------------------------------------------------

func scanFixture(t *testing.T) (*registry.Registry, string) {
	t.Helper()
	root := t.TempDir()
	reg, err := registry.Load(filepath.Join(root, ".polyglot", "registry.json"))
	if err != nil {
		t.Fatal(err)
	}
	reg.Put(&registry.Entry{
		CanonicalID:      "post-20250101-abcd1234",
		OriginalPath:     "content/en/post.md",
		OriginalLanguage: "en",
		Title:            "Post",
		ContentHash:      "srchash",
	})
	return reg, root
}

func writeTranslation(t *testing.T, root, relPath, body string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	content := "---\nlanguage: de\n---\n" + body
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScan_StaleRecord(t *testing.T) {
	reg, root := scanFixture(t)
	if err := reg.SetTranslation("post-20250101-abcd1234", "de", &registry.TranslationRecord{
		Path:   "content/de/post.md",
		Status: registry.StatusStale,
	}); err != nil {
		t.Fatal(err)
	}

	reports := Scan(reg, root)
	if len(reports) != 1 || reports[0].Kind != KindStale {
		t.Errorf("reports = %+v, want one stale", reports)
	}
}

func TestScan_MissingFile(t *testing.T) {
	reg, root := scanFixture(t)
	if err := reg.SetTranslation("post-20250101-abcd1234", "de", &registry.TranslationRecord{
		Path:   "content/de/post.md",
		Status: registry.StatusCurrent,
	}); err != nil {
		t.Fatal(err)
	}

	reports := Scan(reg, root)
	if len(reports) != 1 || reports[0].Kind != KindMissingFile {
		t.Errorf("reports = %+v, want one missing-file", reports)
	}
}

func TestScan_DriftOnManualEdit(t *testing.T) {
	reg, root := scanFixture(t)
	body := "# Hallo\n"
	writeTranslation(t, root, "content/de/post.md", body)
	if err := reg.SetTranslation("post-20250101-abcd1234", "de", &registry.TranslationRecord{
		Path:            "content/de/post.md",
		Status:          registry.StatusCurrent,
		TranslationHash: contenthash.Sum(body),
	}); err != nil {
		t.Fatal(err)
	}

	// Intact file: no reports.
	if reports := Scan(reg, root); len(reports) != 0 {
		t.Fatalf("intact translation reported: %+v", reports)
	}

	// Manual edit changes the body hash.
	writeTranslation(t, root, "content/de/post.md", "# Hallo, editiert\n")
	reports := Scan(reg, root)
	if len(reports) != 1 || reports[0].Kind != KindDrift {
		t.Errorf("reports = %+v, want one drift", reports)
	}
}
