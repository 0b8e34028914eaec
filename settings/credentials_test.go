// Package settings tests.
package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("POLYGLOT_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	return dir
}

func TestLoadStore_Missing(t *testing.T) {
	isolate(t)
	s, err := LoadStore()
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	if len(s) != 0 {
		t.Errorf("expected empty store, got %v", s)
	}
}

func TestSaveLoadStore_RoundTrip(t *testing.T) {
	dir := isolate(t)
	s := Store{"openai": {Key: "sk-test"}}
	if err := SaveStore(s); err != nil {
		t.Fatalf("SaveStore: %v", err)
	}

	path := filepath.Join(dir, dataDirName, fileName)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("auth file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("auth file mode = %o, want 600", perm)
	}

	got, err := LoadStore()
	if err != nil {
		t.Fatal(err)
	}
	if got["openai"] == nil || got["openai"].Key != "sk-test" {
		t.Errorf("store = %v", got)
	}
}

func TestResolveAPIKey_Precedence(t *testing.T) {
	isolate(t)
	if err := SaveStore(Store{"openai": {Key: "from-store"}}); err != nil {
		t.Fatal(err)
	}

	// Store is the last resort.
	key, err := ResolveAPIKey("openai", "")
	if err != nil {
		t.Fatal(err)
	}
	if key != "from-store" {
		t.Errorf("key = %q, want from-store", key)
	}

	// Provider env var beats the store.
	t.Setenv("OPENAI_API_KEY", "from-env")
	if key, _ := ResolveAPIKey("openai", ""); key != "from-env" {
		t.Errorf("key = %q, want from-env", key)
	}

	// POLYGLOT_API_KEY beats the provider env var.
	t.Setenv("POLYGLOT_API_KEY", "from-generic-env")
	if key, _ := ResolveAPIKey("openai", ""); key != "from-generic-env" {
		t.Errorf("key = %q, want from-generic-env", key)
	}

	// Explicit flag beats everything.
	if key, _ := ResolveAPIKey("openai", "from-flag"); key != "from-flag" {
		t.Errorf("key = %q, want from-flag", key)
	}
}

func TestStoredBaseURL(t *testing.T) {
	isolate(t)
	s := Store{"custom-openai": {Key: "sk-test", BaseURL: "https://llm.internal/v1"}}
	if err := SaveStore(s); err != nil {
		t.Fatal(err)
	}

	url, err := StoredBaseURL("custom-openai")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://llm.internal/v1" {
		t.Errorf("url = %q", url)
	}

	// Providers without a stored entry yield no URL.
	if url, _ := StoredBaseURL("openai"); url != "" {
		t.Errorf("url = %q, want empty", url)
	}
}

func TestResolveAPIKey_UnknownProviderNoKey(t *testing.T) {
	isolate(t)
	key, err := ResolveAPIKey("ollama", "")
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		t.Errorf("key = %q, want empty", key)
	}
}
