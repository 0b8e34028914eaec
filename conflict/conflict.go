// Package conflict surfaces stale and rejected translation outcomes as
// deduplicated reports.
//
// The core only needs a sink capable of creating one titled report with a
// body; where reports land (files, an issue tracker) is the sink's business.
// Deduplication is keyed per canonical-ID + language pair and persisted, so
// repeated scans of an unresolved conflict never produce duplicate alerts.
package conflict

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/contentops/polyglot/mdfile"
)

// Report kinds.
const (
	KindStale       = "stale"
	KindRejected    = "rejected"
	KindDrift       = "drift"
	KindMissingFile = "missing-file"
	KindNeedsReview = "needs-review"
)

// Report is one externally visible conflict.
type Report struct {
	CanonicalID string
	Language    string
	Kind        string
	Title       string
	Body        string
}

// Key identifies the conflict for deduplication. One open report exists per
// canonical-ID + language pair.
func (r Report) Key() string {
	return r.CanonicalID + "|" + r.Language
}

// Sink creates externally visible reports.
type Sink interface {
	Create(r Report) error
}

// FileSink writes each report as a Markdown file in a directory.
type FileSink struct {
	Dir string
}

// Create writes the report file, named by its dedup key.
func (s *FileSink) Create(r Report) error {
	name := fmt.Sprintf("%s-%s.md", r.CanonicalID, r.Language)
	if r.Language == "" {
		name = r.CanonicalID + ".md"
	}
	content := fmt.Sprintf("# %s\n\n%s\n", r.Title, r.Body)
	if err := mdfile.WriteAtomic(filepath.Join(s.Dir, name), []byte(content)); err != nil {
		return fmt.Errorf("writing conflict report: %w", err)
	}
	return nil
}

// openReport is one persisted dedup entry.
type openReport struct {
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	RaisedAt string `json:"raisedAt"`
}

// Reporter deduplicates reports against a persisted state file.
type Reporter struct {
	statePath string
	sink      Sink
	open      map[string]openReport
}

// NewReporter loads dedup state from stateDir/state.json.
func NewReporter(stateDir string, sink Sink) (*Reporter, error) {
	rp := &Reporter{
		statePath: filepath.Join(stateDir, "state.json"),
		sink:      sink,
		open:      make(map[string]openReport),
	}
	data, err := os.ReadFile(rp.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return rp, nil
		}
		return nil, fmt.Errorf("reading conflict state: %w", err)
	}
	if err := json.Unmarshal(data, &rp.open); err != nil {
		return nil, fmt.Errorf("parsing conflict state: %w", err)
	}
	return rp, nil
}

// Raise creates the report unless one is already open for its key.
// Returns true when a new report was created.
func (rp *Reporter) Raise(r Report, now time.Time) (bool, error) {
	if _, exists := rp.open[r.Key()]; exists {
		return false, nil
	}
	if err := rp.sink.Create(r); err != nil {
		return false, err
	}
	rp.open[r.Key()] = openReport{
		Kind:     r.Kind,
		Title:    r.Title,
		RaisedAt: now.UTC().Format(time.RFC3339),
	}
	return true, rp.save()
}

// Resolve clears the open marker for a canonical-ID + language pair, so a
// future recurrence raises a fresh report.
func (rp *Reporter) Resolve(canonicalID, language string) error {
	key := Report{CanonicalID: canonicalID, Language: language}.Key()
	if _, exists := rp.open[key]; !exists {
		return nil
	}
	delete(rp.open, key)
	return rp.save()
}

// OpenCount returns the number of open reports.
func (rp *Reporter) OpenCount() int { return len(rp.open) }

func (rp *Reporter) save() error {
	data, err := json.MarshalIndent(rp.open, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling conflict state: %w", err)
	}
	data = append(data, '\n')
	return mdfile.WriteAtomic(rp.statePath, data)
}
