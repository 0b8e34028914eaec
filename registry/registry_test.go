// Package registry tests.
package registry

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/contentops/polyglot/pipeerr"
)

func testEntry(id string) *Entry {
	return &Entry{
		CanonicalID:      id,
		OriginalPath:     "content/en/" + id + ".md",
		OriginalLanguage: "en",
		Title:            "Test",
		LastModified:     "2025-01-01T00:00:00Z",
		ContentHash:      "deadbeef",
	}
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

func TestLoad_MissingFileYieldsEmptyRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.Entries) != 0 {
		t.Errorf("expected empty registry, got %d entries", len(r.Entries))
	}
	if r.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", r.Version, CurrentVersion)
	}
}

func TestLoad_CorruptFileIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, pipeerr.ErrRegistryCorrupt) {
		t.Fatalf("expected ErrRegistryCorrupt, got %v", err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	r, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	e := testEntry("post-20250101-abcd1234")
	r.Put(e)
	if err := r.SetTranslation(e.CanonicalID, "de", &TranslationRecord{
		Path:       "content/de/post.md",
		Status:     StatusCurrent,
		SourceHash: "deadbeef",
	}); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := r.Save(now); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.LastUpdated != "2025-06-01T12:00:00Z" {
		t.Errorf("LastUpdated = %q", got.LastUpdated)
	}
	ge, ok := got.Get(e.CanonicalID)
	if !ok {
		t.Fatal("entry lost in round trip")
	}
	if !reflect.DeepEqual(ge.Translations["de"], e.Translations["de"]) {
		t.Errorf("translation record mismatch: %+v", ge.Translations["de"])
	}
}

// ---------------------------------------------------------------------------
// Mutation invariants
// ---------------------------------------------------------------------------

func TestSetTranslation_RejectsOriginalLanguage(t *testing.T) {
	r, _ := Load(filepath.Join(t.TempDir(), "registry.json"))
	r.Put(testEntry("post-20250101-abcd1234"))
	err := r.SetTranslation("post-20250101-abcd1234", "en", &TranslationRecord{Status: StatusCurrent})
	if err == nil {
		t.Fatal("expected error for translation in the original language")
	}
}

func TestSetTranslation_UnknownID(t *testing.T) {
	r, _ := Load(filepath.Join(t.TempDir(), "registry.json"))
	if err := r.SetTranslation("nope-20250101-00000000", "de", &TranslationRecord{}); err == nil {
		t.Fatal("expected error for unknown canonical ID")
	}
}

func TestIDs_Sorted(t *testing.T) {
	r, _ := Load(filepath.Join(t.TempDir(), "registry.json"))
	for _, id := range []string{"c-20250101-00000003", "a-20250101-00000001", "b-20250101-00000002"} {
		r.Put(testEntry(id))
	}
	got := r.IDs()
	want := []string{"a-20250101-00000001", "b-20250101-00000002", "c-20250101-00000003"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestByPath(t *testing.T) {
	r, _ := Load(filepath.Join(t.TempDir(), "registry.json"))
	e := testEntry("post-20250101-abcd1234")
	r.Put(e)
	got, ok := r.ByPath(e.OriginalPath)
	if !ok || got.CanonicalID != e.CanonicalID {
		t.Errorf("ByPath(%q) = %v, %v", e.OriginalPath, got, ok)
	}
	if _, ok := r.ByPath("content/en/other.md"); ok {
		t.Error("ByPath should miss on an unknown path")
	}
}
