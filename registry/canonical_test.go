package registry

import (
	"strings"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Getting Started", "getting-started"},
		{"  Hello,   World!  ", "hello-world"},
		{"already-a-slug", "already-a-slug"},
		{"CamelCase99", "camelcase99"},
		{"---", "untitled"},
		{"", "untitled"},
	}
	for _, tc := range tests {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMintID_FormatAndStability(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	id := MintID("Getting Started", now, "content/en/getting-started.md", "# Body\n")
	if !ValidID(id) {
		t.Fatalf("MintID produced invalid ID %q", id)
	}
	if !strings.HasPrefix(id, "getting-started-20250115-") {
		t.Errorf("unexpected prefix in %q", id)
	}
	// Same inputs mint the same ID.
	again := MintID("Getting Started", now, "content/en/getting-started.md", "# Body\n")
	if id != again {
		t.Errorf("minting is not deterministic: %q vs %q", id, again)
	}
	// A different path mints a different ID even for identical content.
	other := MintID("Getting Started", now, "content/en/copy.md", "# Body\n")
	if id == other {
		t.Error("path must contribute to the ID suffix")
	}
}

func TestValidID(t *testing.T) {
	valid := []string{
		"post-20250101-abcd1234",
		"a-20250101-00000000",
		"multi-word-slug-20251231-ffffffff",
	}
	for _, id := range valid {
		if !ValidID(id) {
			t.Errorf("ValidID(%q) = false, want true", id)
		}
	}
	invalid := []string{
		"",
		"post",
		"post-2025-abcd1234",
		"post-20250101-ABCD1234",
		"Post-20250101-abcd1234",
		"post-20250101-abcd123",
		"-20250101-abcd1234",
	}
	for _, id := range invalid {
		if ValidID(id) {
			t.Errorf("ValidID(%q) = true, want false", id)
		}
	}
}
