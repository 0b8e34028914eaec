// Package config implements project configuration: auto-detection of
// content roots and languages from the repository layout, overlaid with an
// optional polyglot.yaml file at the repository root.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/contentops/polyglot/langmeta"
)

// FileName is the project configuration file at the repository root.
const FileName = "polyglot.yaml"

// StateDirName holds all pipeline state files.
const StateDirName = ".polyglot"

// Project holds the effective configuration for one repository.
type Project struct {
	// Root is the absolute repository root.
	Root string `yaml:"-"`

	// SourceLang is the original content language (default "en").
	SourceLang string `yaml:"source_lang"`
	// Languages are the translation targets.
	Languages []string `yaml:"languages"`
	// ContentRoots are directories scanned for markdown content,
	// relative to Root.
	ContentRoots []string `yaml:"content_roots"`

	// Provider selects the AI provider ID (default "openai").
	Provider string `yaml:"provider"`
	// Model overrides the provider's default model.
	Model string `yaml:"model"`
	// BaseURL overrides the provider endpoint (custom-openai).
	BaseURL string `yaml:"base_url"`
	// Proxy is an optional HTTP(S) proxy URL for provider calls.
	Proxy string `yaml:"proxy"`

	// Commit creates a git commit per accepted translation.
	Commit bool `yaml:"commit"`
	// ScoreThreshold overrides the minimum similarity score when > 0.
	ScoreThreshold int `yaml:"score_threshold"`
}

// State file paths, all under Root/.polyglot/.

func (p *Project) StateDir() string      { return filepath.Join(p.Root, StateDirName) }
func (p *Project) RegistryPath() string  { return filepath.Join(p.StateDir(), "registry.json") }
func (p *Project) TasksPath() string     { return filepath.Join(p.StateDir(), "tasks.json") }
func (p *Project) ProgressPath() string  { return filepath.Join(p.StateDir(), "progress.jsonl") }
func (p *Project) UsagePath() string     { return filepath.Join(p.StateDir(), "usage.jsonl") }
func (p *Project) OverridesPath() string { return filepath.Join(p.StateDir(), "overrides.yaml") }
func (p *Project) ConflictsDir() string  { return filepath.Join(p.StateDir(), "conflicts") }
func (p *Project) LockPath() string      { return filepath.Join(p.StateDir(), "lock") }

// AbsContentRoots resolves ContentRoots against Root.
func (p *Project) AbsContentRoots() []string {
	roots := make([]string, 0, len(p.ContentRoots))
	for _, r := range p.ContentRoots {
		if filepath.IsAbs(r) {
			roots = append(roots, r)
			continue
		}
		roots = append(roots, filepath.Join(p.Root, r))
	}
	return roots
}

// EnsureStateDir creates the state directory tree.
func (p *Project) EnsureStateDir() error {
	return os.MkdirAll(p.ConflictsDir(), 0755)
}

// Validate checks the configuration for obvious mistakes.
func (p *Project) Validate() error {
	if !langmeta.Known(p.SourceLang) {
		return fmt.Errorf("unknown source language %q", p.SourceLang)
	}
	if len(p.Languages) == 0 {
		return fmt.Errorf("no target languages configured")
	}
	for _, lang := range p.Languages {
		if lang == p.SourceLang {
			return fmt.Errorf("target language %q is the source language", lang)
		}
		if !langmeta.Known(lang) {
			return fmt.Errorf("unknown target language %q", lang)
		}
	}
	if len(p.ContentRoots) == 0 {
		return fmt.Errorf("no content roots configured or detected")
	}
	return nil
}

// Load resolves the effective configuration for rootDir: auto-detected
// defaults overlaid with polyglot.yaml if present.
func Load(rootDir string) (*Project, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	p := Detect(absRoot)

	cfgPath := filepath.Join(absRoot, FileName)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("reading %s: %w", cfgPath, err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cfgPath, err)
	}
	if p.SourceLang == "" {
		p.SourceLang = "en"
	}
	// An explicit config file must be coherent. Auto-detected defaults are
	// not validated so a fresh project without target directories can still
	// run assign.
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cfgPath, err)
	}
	return p, nil
}

// Detect builds a configuration from the repository layout alone.
func Detect(absRoot string) *Project {
	p := &Project{
		Root:       absRoot,
		SourceLang: "en",
		Provider:   "openai",
	}

	// Content roots: conventional content directories containing .md files.
	for _, candidate := range []string{"content", "docs", "data/blog/posts", "posts", "articles"} {
		dir := filepath.Join(absRoot, candidate)
		if hasMarkdown(dir) {
			p.ContentRoots = append(p.ContentRoots, candidate)
		}
	}
	if len(p.ContentRoots) == 0 && hasMarkdown(absRoot) {
		p.ContentRoots = []string{"."}
	}

	// Target languages: per-language subdirectories under the content roots.
	langs := map[string]bool{}
	for _, root := range p.AbsContentRoots() {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() && langmeta.Known(e.Name()) && e.Name() != p.SourceLang {
				langs[e.Name()] = true
			}
		}
	}
	for lang := range langs {
		p.Languages = append(p.Languages, lang)
	}
	sort.Strings(p.Languages)

	return p
}

// hasMarkdown reports whether dir contains at least one .md file, without
// descending into dot directories.
func hasMarkdown(dir string) bool {
	found := false
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fs.SkipDir
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".md") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}
