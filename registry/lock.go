package registry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// AcquireLock takes the single-flight lock guarding the registry and ledgers.
// The lock is a file created with O_EXCL containing the owner's pid. A lock
// left behind by a dead process is detected by pid liveness and broken.
//
// Returns a release function. Concurrent pipeline runs are refused, not
// queued: the batch model is one writer per run.
func AcquireLock(path string) (func(), error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			if cerr := f.Close(); cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("writing lock %s: %w", path, cerr)
			}
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock %s: %w", path, err)
		}
		if !lockIsStale(path) {
			return nil, fmt.Errorf("registry locked by another pipeline run (%s)", path)
		}
		_ = os.Remove(path)
	}
	return nil, fmt.Errorf("could not acquire lock %s", path)
}

// lockIsStale reports whether the lock file's owner process is gone.
func lockIsStale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return true
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	// Signal 0 probes liveness without delivering anything.
	return proc.Signal(syscall.Signal(0)) != nil
}
