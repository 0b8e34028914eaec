// Package assign tests.
package assign

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/contentops/polyglot/mdfile"
	"github.com/contentops/polyglot/registry"
)

func write(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func setup(t *testing.T) (Options, *registry.Registry, string) {
	t.Helper()
	root := t.TempDir()
	reg, err := registry.Load(filepath.Join(root, ".polyglot", "registry.json"))
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{
		Registry:        reg,
		Root:            root,
		ContentRoots:    []string{"content"},
		DefaultLanguage: "en",
		Now:             func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) },
	}
	return opts, reg, root
}

// ---------------------------------------------------------------------------
// Minting
// ---------------------------------------------------------------------------

func TestRun_MintsIDAndWritesFrontmatter(t *testing.T) {
	opts, reg, root := setup(t)
	write(t, root, "content/en/hello.md", "---\ntitle: Hello\n---\n\n# Hello\n")

	res, err := Run(opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Assigned != 1 || res.Seeded != 1 {
		t.Fatalf("res = %+v", res)
	}

	doc, err := mdfile.ParseFile(filepath.Join(root, "content/en/hello.md"))
	if err != nil {
		t.Fatal(err)
	}
	id := doc.CanonicalID()
	if !registry.ValidID(id) {
		t.Fatalf("written ID %q is invalid", id)
	}
	if !strings.HasPrefix(id, "hello-20250401-") {
		t.Errorf("ID = %q, want hello-20250401-* prefix", id)
	}
	if doc.Language() != "en" {
		t.Errorf("language = %q", doc.Language())
	}

	entry, ok := reg.Get(id)
	if !ok {
		t.Fatal("no registry entry seeded")
	}
	if entry.OriginalPath != "content/en/hello.md" || entry.OriginalLanguage != "en" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Title != "Hello" {
		t.Errorf("Title = %q", entry.Title)
	}
}

func TestRun_IdempotentSecondPass(t *testing.T) {
	opts, reg, root := setup(t)
	write(t, root, "content/en/hello.md", "# Hello\n")

	if _, err := Run(opts); err != nil {
		t.Fatal(err)
	}
	first, err := mdfile.ParseFile(filepath.Join(root, "content/en/hello.md"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := Run(opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Assigned != 0 {
		t.Errorf("second pass assigned %d, want 0", res.Assigned)
	}
	if res.Untouched != 1 {
		t.Errorf("Untouched = %d, want 1", res.Untouched)
	}
	second, err := mdfile.ParseFile(filepath.Join(root, "content/en/hello.md"))
	if err != nil {
		t.Fatal(err)
	}
	if first.CanonicalID() != second.CanonicalID() {
		t.Error("ID changed on second pass")
	}
	if len(reg.Entries) != 1 {
		t.Errorf("registry has %d entries, want 1", len(reg.Entries))
	}
}

func TestRun_LanguageFromPathBeatsFrontmatter(t *testing.T) {
	opts, reg, root := setup(t)
	write(t, root, "content/de/beitrag.md", "---\nlanguage: en\n---\n\n# Beitrag\n")

	if _, err := Run(opts); err != nil {
		t.Fatal(err)
	}
	doc, _ := mdfile.ParseFile(filepath.Join(root, "content/de/beitrag.md"))
	entry, ok := reg.Get(doc.CanonicalID())
	if !ok {
		t.Fatal("no entry")
	}
	if entry.OriginalLanguage != "de" {
		t.Errorf("OriginalLanguage = %q, want de (path segment wins)", entry.OriginalLanguage)
	}
}

// ---------------------------------------------------------------------------
// Ambiguity
// ---------------------------------------------------------------------------

func TestRun_AmbiguousSlugGroupLeftUntouched(t *testing.T) {
	opts, reg, root := setup(t)
	// Two files, same slug, neither carries identity metadata: which one is
	// the original is unknowable.
	write(t, root, "content/en/post.md", "# Post\n")
	write(t, root, "content/de/post.md", "# Beitrag\n")

	res, err := Run(opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Assigned != 0 {
		t.Errorf("ambiguous files must not be assigned, got %d", res.Assigned)
	}
	if len(res.Ambiguous) != 1 {
		t.Fatalf("Ambiguous = %+v", res.Ambiguous)
	}
	g := res.Ambiguous[0]
	if g.Slug != "post" || len(g.Paths) != 2 {
		t.Errorf("group = %+v", g)
	}
	if len(reg.Entries) != 0 {
		t.Error("ambiguous group must not seed registry entries")
	}
	// Files stay byte-identical.
	for _, p := range []string{"content/en/post.md", "content/de/post.md"} {
		data, _ := os.ReadFile(filepath.Join(root, p))
		if strings.Contains(string(data), "canonicalId") {
			t.Errorf("%s was modified", p)
		}
	}
}

// ---------------------------------------------------------------------------
// Seeding already-assigned trees
// ---------------------------------------------------------------------------

func TestRun_SeedsEntryForAssignedFile(t *testing.T) {
	opts, reg, root := setup(t)
	write(t, root, "content/en/hello.md",
		"---\ncanonicalId: hello-20250101-aabbccdd\nlanguage: en\ntitle: Hello\n---\n\n# Hello\n")

	res, err := Run(opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Seeded != 1 {
		t.Errorf("Seeded = %d, want 1", res.Seeded)
	}
	if _, ok := reg.Get("hello-20250101-aabbccdd"); !ok {
		t.Error("existing ID not seeded into registry")
	}
}

func TestRun_AttachesTranslationViaTranslationOf(t *testing.T) {
	opts, reg, root := setup(t)
	write(t, root, "content/en/hello.md",
		"---\ncanonicalId: hello-20250101-aabbccdd\nlanguage: en\n---\n\n# Hello\n")
	write(t, root, "content/de/hello.md",
		"---\ncanonicalId: hello-20250101-aabbccdd\nlanguage: de\ntranslationOf: hello-20250101-aabbccdd\n---\n\n# Hallo\n")

	if _, err := Run(opts); err != nil {
		t.Fatal(err)
	}
	entry, ok := reg.Get("hello-20250101-aabbccdd")
	if !ok {
		t.Fatal("original not seeded")
	}
	rec, ok := entry.Translations["de"]
	if !ok {
		t.Fatal("translation record not attached")
	}
	if rec.Path != "content/de/hello.md" {
		t.Errorf("rec.Path = %q", rec.Path)
	}
	// Provenance unknown: an empty SourceHash makes the next detect run mark
	// it stale rather than trusting it.
	if rec.SourceHash != "" {
		t.Errorf("SourceHash = %q, want empty", rec.SourceHash)
	}
}

func TestRun_SkipsDotAndVendorDirs(t *testing.T) {
	opts, _, root := setup(t)
	write(t, root, "content/node_modules/pkg/readme.md", "# Ignore\n")
	write(t, root, "content/en/real.md", "# Real\n")

	res, err := Run(opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scanned != 1 {
		t.Errorf("Scanned = %d, want 1 (node_modules skipped)", res.Scanned)
	}
}
