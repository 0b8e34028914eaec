// Package detect computes translation work by diffing registry state against
// current file hashes, and emits a deterministic task list.
package detect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/contentops/polyglot/mdfile"
)

// Task reasons.
const (
	ReasonMissing = "missing"
	ReasonStale   = "stale"
)

// Task priorities. Lower sorts first: a stale translation is showing outdated
// content right now, a missing one shows nothing.
const (
	PriorityStale   = 1
	PriorityMissing = 2
)

// Task is one unit of translation work. Its identity key embeds the source
// content hash, so a content edit yields a new task identity and any old
// "done" marker stops matching.
type Task struct {
	CanonicalID             string `json:"canonicalId"`
	SourcePath              string `json:"sourcePath"`
	SourceLanguage          string `json:"sourceLanguage"`
	TargetLanguage          string `json:"targetLanguage"`
	SourceContentHash       string `json:"sourceContentHash"`
	ExistingTranslationHash string `json:"existingTranslationHash,omitempty"`
	Reason                  string `json:"reason"`
	OutputPath              string `json:"outputPath"`
	Priority                int    `json:"priority"`
}

// Key returns the task identity key.
func (t Task) Key() string {
	return t.CanonicalID + "|" + t.TargetLanguage + "|" + t.SourceContentHash
}

// WriteTasks writes the task list file — the inspectable flat-file boundary
// between detector and generator.
func WriteTasks(path string, tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling task list: %w", err)
	}
	data = append(data, '\n')
	return mdfile.WriteAtomic(path, data)
}

// ReadTasks loads a task list file.
func ReadTasks(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task list %s: %w", path, err)
	}
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parsing task list %s: %w", path, err)
	}
	return tasks, nil
}

// outputPathFor derives the target file path from the source path by swapping
// the language path segment (life/en/post.md → life/de/post.md). When the
// source path has no language segment, the language goes into the file name
// (post.md → post.de.md).
func outputPathFor(sourcePath, sourceLang, targetLang string) string {
	parts := strings.Split(filepath.ToSlash(sourcePath), "/")
	for i, p := range parts {
		if p == sourceLang {
			parts[i] = targetLang
			return strings.Join(parts, "/")
		}
	}
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(filepath.ToSlash(sourcePath), ext) + "." + targetLang + ext
}
