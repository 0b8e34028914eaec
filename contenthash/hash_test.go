package contenthash

import "testing"

func TestSum_Deterministic(t *testing.T) {
	a := Sum("# Title\n\nBody.\n")
	b := Sum("# Title\n\nBody.\n")
	if a != b {
		t.Errorf("same body hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestSum_WhitespaceChanges(t *testing.T) {
	// Comparison is exact: even a whitespace edit is a content change.
	if Sum("Body.\n") == Sum("Body. \n") {
		t.Error("whitespace-only edit must change the hash")
	}
}

func TestShort8(t *testing.T) {
	got := Short8("content/post.md", "Body.\n")
	if len(got) != 8 {
		t.Fatalf("expected 8 chars, got %q", got)
	}
	for _, c := range got {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Fatalf("non-hex char in %q", got)
		}
	}
	// Same content at a different path yields a different suffix.
	if Short8("content/other.md", "Body.\n") == got {
		t.Error("path must contribute to the short hash")
	}
}
