// Package gitvcs wraps the git CLI for the pipeline's commit boundary.
//
// Each accepted translation is committed together with the registry and
// ledger updates as one logical unit; git history is the durability and
// repair layer for all pipeline state.
package gitvcs

import (
	"fmt"
	"os/exec"
	"strings"
)

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(dir string) bool {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--is-inside-work-tree")
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// Commit stages paths (relative to dir) and commits them with message.
// Committing with nothing staged is not an error: the paths may be unchanged
// on a retry.
func Commit(dir string, paths []string, message string) error {
	args := append([]string{"-C", dir, "add", "--"}, paths...)
	if out, err := exec.Command("git", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("git add: %v: %s", err, strings.TrimSpace(string(out)))
	}

	commitArgs := append([]string{"-C", dir, "commit", "-m", message, "--"}, paths...)
	out, err := exec.Command("git", commitArgs...).CombinedOutput()
	if err != nil {
		if strings.Contains(string(out), "nothing to commit") ||
			strings.Contains(string(out), "nothing added to commit") {
			return nil
		}
		return fmt.Errorf("git commit: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
