// Package gitvcs tests. They shell out to a real git binary and are skipped
// where none is installed.
package gitvcs

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	return dir
}

func TestIsRepo(t *testing.T) {
	requireGit(t)
	if IsRepo(t.TempDir()) {
		t.Error("bare temp dir reported as repo")
	}
	if !IsRepo(initRepo(t)) {
		t.Error("initialized repo not detected")
	}
}

func TestCommit(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	path := filepath.Join(dir, "file.md")
	if err := os.WriteFile(path, []byte("# Hi\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Commit(dir, []string{path}, "add file"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	out, err := exec.Command("git", "-C", dir, "log", "--oneline").Output()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "add file") {
		t.Errorf("commit missing from log: %s", out)
	}

	// Committing unchanged paths is a no-op, not an error.
	if err := Commit(dir, []string{path}, "retry"); err != nil {
		t.Errorf("unchanged commit: %v", err)
	}
}
