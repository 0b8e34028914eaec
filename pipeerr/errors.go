// Package pipeerr defines the error taxonomy shared across the pipeline.
//
// Per-task errors never abort a batch run. Only ErrRegistryCorrupt is fatal:
// the registry file must be repaired from version control before the pipeline
// may touch it again.
package pipeerr

import "errors"

var (
	// ErrMalformedSource marks a content file that cannot be parsed.
	// The file is logged and skipped; the scan continues.
	ErrMalformedSource = errors.New("malformed source file")

	// ErrProvider marks a failed AI provider call (network, timeout, non-2xx).
	// Retryable on the next run; no durable state is mutated.
	ErrProvider = errors.New("provider error")

	// ErrMalformedResponse marks an AI response that could not be parsed into
	// the expected structured object. Retryable; the raw response is logged.
	ErrMalformedResponse = errors.New("malformed AI response")

	// ErrHallucination marks a translation rejected by the similarity
	// analyzer. Not retryable plumbing: a conflict report is raised and no
	// partial write happens.
	ErrHallucination = errors.New("hallucination detected")

	// ErrPersistence marks a failed write of a content file, the registry, or
	// a ledger. Aborts the current task only; the progress ledger stays
	// unmarked so the task is retried.
	ErrPersistence = errors.New("persistence failure")

	// ErrRegistryCorrupt marks an unreadable registry file. Fatal for the run.
	ErrRegistryCorrupt = errors.New("registry corrupt")
)

// Retryable reports whether err represents a transient failure that the next
// run should pick up again.
func Retryable(err error) bool {
	return errors.Is(err, ErrProvider) || errors.Is(err, ErrMalformedResponse)
}
