package langmeta

import "testing"

func TestResolve(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		m, ok := Resolve("de")
		if !ok || m.Name != "German" || m.Native != "Deutsch" {
			t.Fatalf("unexpected result: %#v, %v", m, ok)
		}
	})

	t.Run("base fallback", func(t *testing.T) {
		m, ok := Resolve("pt-BR")
		if !ok || m.Name != "Portuguese" {
			t.Fatalf("unexpected fallback result: %#v, %v", m, ok)
		}
		if _, ok := Resolve("de_AT"); !ok {
			t.Fatal("underscore variant must fall back")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, ok := Resolve("zz"); ok {
			t.Fatal("zz must be unknown")
		}
	})
}

func TestName(t *testing.T) {
	if got := Name("ja"); got != "Japanese" {
		t.Errorf("Name(ja) = %q", got)
	}
	// Unknown codes pass through for log output.
	if got := Name("zz"); got != "zz" {
		t.Errorf("Name(zz) = %q", got)
	}
}

func TestKnown(t *testing.T) {
	if !Known("fr") {
		t.Error("fr must be known")
	}
	if Known("tlh") {
		t.Error("tlh must not be known")
	}
}
