package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// TimedOverride suppresses matching tasks until it expires. An override with
// no expiry never expires. Reason is mandatory documentation, not logic.
type TimedOverride struct {
	CanonicalID string     `yaml:"canonical_id,omitempty"`
	Path        string     `yaml:"path,omitempty"`
	Language    string     `yaml:"language,omitempty"`
	Expires     *time.Time `yaml:"expires,omitempty"`
	Reason      string     `yaml:"reason"`
}

// Policy is the override policy file consulted before any task is emitted —
// a suppressed task never incurs provider cost.
type Policy struct {
	Paused    bool            `yaml:"paused"`
	SkipIDs   []string        `yaml:"skip_ids,omitempty"`
	SkipPaths []string        `yaml:"skip_paths,omitempty"`
	Overrides []TimedOverride `yaml:"overrides,omitempty"`
}

// LoadPolicy reads the policy file. A missing file is an empty policy.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Policy{}, nil
		}
		return nil, fmt.Errorf("reading override policy %s: %w", path, err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing override policy %s: %w", path, err)
	}
	return &p, nil
}

// Suppresses reports whether the policy blocks t, with the matching reason.
func (p *Policy) Suppresses(t Task, now time.Time) (bool, string) {
	if p == nil {
		return false, ""
	}
	if p.Paused {
		return true, "global pause"
	}
	for _, id := range p.SkipIDs {
		if id == t.CanonicalID {
			return true, "skip list (id)"
		}
	}
	for _, path := range p.SkipPaths {
		if filepath.ToSlash(path) == filepath.ToSlash(t.SourcePath) {
			return true, "skip list (path)"
		}
	}
	for _, o := range p.Overrides {
		if o.Expires != nil && now.After(*o.Expires) {
			continue
		}
		if o.CanonicalID != "" && o.CanonicalID != t.CanonicalID {
			continue
		}
		if o.Path != "" && filepath.ToSlash(o.Path) != filepath.ToSlash(t.SourcePath) {
			continue
		}
		if o.Language != "" && o.Language != t.TargetLanguage {
			continue
		}
		if o.CanonicalID == "" && o.Path == "" && o.Language == "" {
			continue
		}
		reason := o.Reason
		if reason == "" {
			reason = "override"
		}
		return true, reason
	}
	return false, ""
}
