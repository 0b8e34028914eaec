// Package generate runs translation tasks through the full pipeline:
// mask, request, validate, persist, commit. Tasks run sequentially, one
// AI call in flight at a time, so a crash loses at most one task's work.
// Each task moves through a fixed set of states; both terminal outcomes
// (accepted or rejected) leave a durable trace — a committed file set or
// a conflict report.
package generate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/contentops/polyglot/conflict"
	"github.com/contentops/polyglot/contenthash"
	"github.com/contentops/polyglot/detect"
	"github.com/contentops/polyglot/gitvcs"
	"github.com/contentops/polyglot/langmeta"
	"github.com/contentops/polyglot/mask"
	"github.com/contentops/polyglot/mdfile"
	"github.com/contentops/polyglot/pipeerr"
	"github.com/contentops/polyglot/progress"
	"github.com/contentops/polyglot/provider"
	"github.com/contentops/polyglot/registry"
	"github.com/contentops/polyglot/similarity"
	"github.com/contentops/polyglot/usagelog"
)

// Task states, in pipeline order.
const (
	StatePending    = "pending"
	StateExtracting = "extracting"
	StateRequesting = "requesting"
	StateValidating = "validating"
	StateAccepted   = "accepted"
	StateRejected   = "rejected"
	StateCommitted  = "committed"
	StateReported   = "reported"
	StateFailed     = "failed"
)

// Completer is the AI call surface the generator depends on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userContent string) (*provider.Result, error)
}

// Options configures a generator run.
type Options struct {
	Registry  *registry.Registry
	Progress  *progress.Ledger
	UsagePath string
	Completer Completer
	Reporter  *conflict.Reporter

	// Root is the repository root, used for git commits and for resolving
	// task paths.
	Root string

	// CommitEnabled creates a git commit per accepted translation.
	CommitEnabled bool

	// ScoreThreshold overrides the default minimum similarity score when > 0.
	ScoreThreshold int

	// ModelName is recorded in translation history and usage records when the
	// provider response carries no model name.
	ModelName string

	Now func() time.Time

	OnLog func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Options) threshold() int {
	if o.ScoreThreshold > 0 {
		return o.ScoreThreshold
	}
	return similarity.ScoreThreshold
}

// Summary totals one generator run.
type Summary struct {
	Processed int
	Committed int
	Skipped   int
	Failed    int
	Rejected  int

	// Transient counts the subset of Failed that pipeerr.Retryable classifies
	// as transient (provider, malformed response). The remainder are
	// correctness breaches that need attention before a retry can succeed.
	Transient int
}

// resolvePath joins a task path to the project root. The task file stores
// paths relative to the root so the list survives a checkout at a different
// location.
func resolvePath(root, p string) string {
	if p == "" || root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Run executes tasks in order. Per-task failures are logged and counted but
// never abort the batch; a canceled context stops before the next task.
func Run(ctx context.Context, opts *Options, tasks []detect.Task) (*Summary, error) {
	if opts.Completer == nil {
		return nil, errors.New("no completer configured")
	}
	sum := &Summary{}
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if opts.Progress.Done(t.Key()) {
			sum.Skipped++
			continue
		}
		sum.Processed++
		state, err := runOne(ctx, opts, t)
		switch state {
		case StateCommitted:
			sum.Committed++
		case StateReported:
			sum.Rejected++
		default:
			sum.Failed++
			if pipeerr.Retryable(err) {
				sum.Transient++
			}
			if err != nil {
				opts.log("task %s → %s failed: %v", t.CanonicalID, t.TargetLanguage, err)
			}
		}
	}
	return sum, nil
}

// runOne drives a single task to a terminal state.
func runOne(ctx context.Context, opts *Options, t detect.Task) (string, error) {
	// extracting
	srcPath := resolvePath(opts.Root, t.SourcePath)
	doc, err := mdfile.ParseFile(srcPath)
	if err != nil {
		return StateFailed, fmt.Errorf("%w: %s: %v", pipeerr.ErrMalformedSource, srcPath, err)
	}
	ex := mask.Extract(doc.Body)
	opts.log("task %s → %s: masked %d segments", t.CanonicalID, t.TargetLanguage, ex.Count())

	// requesting
	system, user := provider.BuildTranslationPrompt(langmeta.Name(t.TargetLanguage), doc.Title(), ex.Masked)
	res, err := opts.Completer.Complete(ctx, system, user)
	if err != nil {
		return StateFailed, err
	}

	// validating
	restored, missing := ex.Restore(res.TranslatedBody)
	extra := res.Issues
	for _, tok := range missing {
		extra = append(extra, "missing preserved segment "+tok)
	}
	rep := similarity.Analyze(doc.Body, restored, extra)
	if rep.Score < opts.threshold() || rep.IsHallucination {
		if err := raiseRejection(opts, t, rep); err != nil {
			return StateFailed, err
		}
		// The classified error tags the breach for callers; the conflict
		// report is the durable trace.
		return StateReported, fmt.Errorf("%w: score %d (minimum %d), %d issues",
			pipeerr.ErrHallucination, rep.Score, opts.threshold(), len(rep.Issues))
	}

	// accepted
	if err := persist(opts, t, doc, res, restored, rep); err != nil {
		return StateFailed, err
	}
	return StateCommitted, nil
}

// raiseRejection raises a conflict report instead of writing any translation
// output. The task stays incomplete so the next run retries it.
func raiseRejection(opts *Options, t detect.Task, rep *similarity.Report) error {
	opts.log("task %s → %s rejected: score %d, %d issues",
		t.CanonicalID, t.TargetLanguage, rep.Score, len(rep.Issues))
	var b strings.Builder
	fmt.Fprintf(&b, "Automatic translation of `%s` into %s was rejected by structural validation.\n\n",
		t.CanonicalID, langmeta.Name(t.TargetLanguage))
	fmt.Fprintf(&b, "Similarity score: %d (minimum %d)\n\n", rep.Score, opts.threshold())
	fmt.Fprintf(&b, "Source: %d headings, %d code blocks, %d links. Translation: %d headings, %d code blocks, %d links. Length ratio %.2f.\n",
		rep.Source.Headings, rep.Source.CodeBlocks, rep.Source.Links,
		rep.Translated.Headings, rep.Translated.CodeBlocks, rep.Translated.Links, rep.LengthRatio)
	if len(rep.Issues) > 0 {
		b.WriteString("\nIssues:\n")
		for _, issue := range rep.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}
	b.WriteString("\nNo output was written. The task will be retried on the next run.\n")
	_, err := opts.Reporter.Raise(conflict.Report{
		CanonicalID: t.CanonicalID,
		Language:    t.TargetLanguage,
		Kind:        conflict.KindRejected,
		Title:       fmt.Sprintf("Rejected translation: %s (%s)", t.CanonicalID, t.TargetLanguage),
		Body:        b.String(),
	}, opts.now())
	if err != nil {
		return fmt.Errorf("%w: raising rejection report: %v", pipeerr.ErrPersistence, err)
	}
	return nil
}

// persist writes the accepted translation and all bookkeeping, then commits
// the whole file set as one unit.
func persist(opts *Options, t detect.Task, src *mdfile.Document, res *provider.Result, body string, rep *similarity.Report) error {
	now := opts.now()
	model := res.Model
	if model == "" {
		model = opts.ModelName
	}

	out := &mdfile.Document{Body: body}
	out.SetField(mdfile.FieldCanonicalID, t.CanonicalID)
	out.SetField(mdfile.FieldLanguage, t.TargetLanguage)
	out.SetField(mdfile.FieldSourceLanguage, t.SourceLanguage)
	out.SetField(mdfile.FieldTranslationOf, t.CanonicalID)
	if title := res.TranslatedTitle; title != "" {
		out.SetField(mdfile.FieldTitle, title)
	} else if title := src.Title(); title != "" {
		out.SetField(mdfile.FieldTitle, title)
	}
	if tags := src.Tags(); len(tags) > 0 {
		out.SetStringList(mdfile.FieldTags, tags)
	}
	if res.Summary != "" {
		out.SetField(mdfile.FieldAITLDR, res.Summary)
	}
	out.SetIntField(mdfile.FieldAITextScore, rep.Score)
	out.SetTokenUsage(model, res.InputTokens, res.OutputTokens)
	out.AppendHistory(t.TargetLanguage, model, now.Format("2006-01-02"))

	outPath := resolvePath(opts.Root, t.OutputPath)
	if err := out.WriteFile(outPath); err != nil {
		return fmt.Errorf("%w: writing %s: %v", pipeerr.ErrPersistence, outPath, err)
	}

	rel := outPath
	if r, err := filepath.Rel(opts.Root, outPath); err == nil {
		rel = r
	}
	err := opts.Registry.SetTranslation(t.CanonicalID, t.TargetLanguage, &registry.TranslationRecord{
		Path:            rel,
		Status:          registry.StatusCurrent,
		LastTranslated:  now.UTC().Format(time.RFC3339),
		TranslationHash: contenthash.Sum(body),
		SourceHash:      t.SourceContentHash,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", pipeerr.ErrPersistence, err)
	}
	if err := opts.Registry.Save(now); err != nil {
		return fmt.Errorf("%w: %v", pipeerr.ErrPersistence, err)
	}

	urec := usagelog.New(usagelog.OpTranslate, t.CanonicalID, model,
		res.InputTokens, res.OutputTokens, t.SourceLanguage, t.TargetLanguage, now)
	if err := usagelog.Append(opts.UsagePath, urec); err != nil {
		return err
	}
	if err := opts.Progress.MarkDone(t.Key(), now); err != nil {
		return err
	}

	// Resolve any earlier rejection report for this pair.
	if err := opts.Reporter.Resolve(t.CanonicalID, t.TargetLanguage); err != nil {
		opts.log("resolving conflict report for %s (%s): %v", t.CanonicalID, t.TargetLanguage, err)
	}

	if opts.CommitEnabled && gitvcs.IsRepo(opts.Root) {
		paths := []string{outPath, opts.Registry.Path(), opts.Progress.Path(), opts.UsagePath}
		msg := fmt.Sprintf("i18n: translate %s to %s", t.CanonicalID, t.TargetLanguage)
		if err := gitvcs.Commit(opts.Root, paths, msg); err != nil {
			opts.log("git commit failed for %s: %v", t.CanonicalID, err)
		}
	}
	opts.log("task %s → %s accepted: score %d, %d+%d tokens",
		t.CanonicalID, t.TargetLanguage, rep.Score, res.InputTokens, res.OutputTokens)
	return nil
}
