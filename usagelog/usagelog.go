// Package usagelog implements the token/cost ledger: one append-only record
// per AI call with token counts, derived cost, and a linear CO2 estimate.
//
// The write path is an O(1) JSON-line append; aggregation (daily, monthly,
// by operation) happens at read time only.
package usagelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/contentops/polyglot/pipeerr"
)

// Operation names recorded in the ledger.
const (
	OpTranslate = "translate"
	OpTitle     = "title"
	OpSummary   = "summary"
	OpTagging   = "tagging"
)

// Record is one AI call.
type Record struct {
	Operation      string  `json:"operation"`
	CanonicalID    string  `json:"canonicalId"`
	Model          string  `json:"model"`
	InputTokens    int     `json:"inputTokens"`
	OutputTokens   int     `json:"outputTokens"`
	CostUSD        float64 `json:"cost"`
	CO2Grams       float64 `json:"co2"`
	Timestamp      string  `json:"timestamp"`
	SourceLanguage string  `json:"sourceLanguage,omitempty"`
	TargetLanguage string  `json:"targetLanguage,omitempty"`
}

// New builds a record for a finished call, deriving cost and CO2.
func New(op, canonicalID, model string, inputTokens, outputTokens int, sourceLang, targetLang string, now time.Time) Record {
	return Record{
		Operation:      op,
		CanonicalID:    canonicalID,
		Model:          model,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		CostUSD:        Cost(model, inputTokens, outputTokens),
		CO2Grams:       CO2Grams(inputTokens + outputTokens),
		Timestamp:      now.UTC().Format(time.RFC3339),
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
	}
}

// Append writes one record to the ledger file with fsync.
func Append(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: usage ledger: %v", pipeerr.ErrPersistence, err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: usage ledger: %v", pipeerr.ErrPersistence, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("%w: usage ledger: %v", pipeerr.ErrPersistence, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: usage ledger: %v", pipeerr.ErrPersistence, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: usage ledger: %v", pipeerr.ErrPersistence, err)
	}
	return nil
}

// ReadAll loads every record in the ledger. Missing file = empty ledger;
// malformed lines are skipped.
func ReadAll(path string) ([]Record, error) {
	// Always a non-nil slice, so an empty ledger renders as [] in JSON.
	out := []Record{}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("opening usage ledger %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading usage ledger %s: %w", path, err)
	}
	return out, nil
}
