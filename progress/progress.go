// Package progress implements the append-only completed-task ledger that
// makes a killed batch run safe to restart.
//
// Each line is one JSON object holding a completed task key and a timestamp.
// Lines are appended with O_APPEND and fsynced immediately after the task's
// commit, so a crash loses at most the in-flight task. Keys embed the source
// content hash: a later content edit changes the key and thereby
// "un-completes" the task with no explicit invalidation step.
package progress

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/contentops/polyglot/pipeerr"
)

// Entry is one completed-task record.
type Entry struct {
	Key         string `json:"key"`
	CompletedAt string `json:"completedAt"`
}

// Ledger is the loaded completed-task log.
type Ledger struct {
	path string
	done map[string]string // key → completedAt
}

// Load reads the ledger from path. A missing file yields an empty ledger.
// A torn trailing line (crash mid-append) is skipped, not an error.
func Load(path string) (*Ledger, error) {
	l := &Ledger{path: path, done: make(map[string]string)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("opening progress ledger %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		if e.Key != "" {
			l.done[e.Key] = e.CompletedAt
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading progress ledger %s: %w", path, err)
	}
	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Done reports whether the exact task key has already been completed.
func (l *Ledger) Done(key string) bool {
	_, ok := l.done[key]
	return ok
}

// Len returns the number of completed entries.
func (l *Ledger) Len() int { return len(l.done) }

// MarkDone appends a completed-task entry and fsyncs before returning.
func (l *Ledger) MarkDone(key string, now time.Time) error {
	e := Entry{Key: key, CompletedAt: now.UTC().Format(time.RFC3339)}
	if err := appendLine(l.path, e); err != nil {
		return fmt.Errorf("%w: progress ledger: %v", pipeerr.ErrPersistence, err)
	}
	l.done[key] = e.CompletedAt
	return nil
}

// appendLine marshals v and appends it as one JSON line, with fsync.
func appendLine(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}
