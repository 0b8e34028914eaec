// polyglot — content identity and AI translation pipeline for markdown sites.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/contentops/polyglot/assign"
	"github.com/contentops/polyglot/config"
	"github.com/contentops/polyglot/conflict"
	"github.com/contentops/polyglot/detect"
	"github.com/contentops/polyglot/generate"
	"github.com/contentops/polyglot/langmeta"
	"github.com/contentops/polyglot/progress"
	"github.com/contentops/polyglot/provider"
	"github.com/contentops/polyglot/registry"
	"github.com/contentops/polyglot/settings"
	"github.com/contentops/polyglot/usagelog"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "polyglot",
		Short: "Content identity and AI translation pipeline for markdown sites",
		Long: `polyglot — content identity and AI translation pipeline.

Tracks every markdown content unit under a canonical ID, detects missing and
outdated translations by content hash, and produces translations through AI
providers with structural validation, a resumable progress ledger, and a
token/CO2 usage ledger.

Commands:
  status      Show registry and translation statistics
  assign      Mint canonical IDs for new content files
  detect      Build the translation task list
  translate   Run translation tasks through the AI pipeline
  conflicts   Scan for registry/filesystem drift and list open conflicts
  usage       Show AI token, cost, and CO2 statistics

AI Providers:
  openai         OpenAI — API key
  anthropic      Anthropic (Claude) — API key
  google         Google AI (Gemini) — API key
  groq           Groq — API key
  ollama         Ollama local server
  custom-openai  Custom OpenAI-compatible endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newStatusCmd(),
		newAssignCmd(),
		newDetectCmd(),
		newTranslateCmd(),
		newConflictsCmd(),
		newUsageCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("polyglot version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// loadProject resolves configuration and opens the registry under its lock.
// The returned release func must be called when state work is finished.
func loadProject() (*config.Project, *registry.Registry, func(), error) {
	proj, err := config.Load(rootDir)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := proj.EnsureStateDir(); err != nil {
		return nil, nil, nil, err
	}
	release, err := registry.AcquireLock(proj.LockPath())
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := registry.Load(proj.RegistryPath())
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	return proj, reg, release, nil
}

// ---------------------------------------------------------------------------
// status (read-only: registry info + translation stats)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show registry and translation statistics",
		Long: `Show the configured project layout and per-language translation progress.

Counts current, stale, and missing translations per target language from the
canonical registry. Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	return cmd
}

func runStatus() error {
	proj, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	reg, err := registry.Load(proj.RegistryPath())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Root:          %s\n", proj.Root)
	fmt.Fprintf(os.Stderr, "  Source lang:   %s (%s)\n", proj.SourceLang, langmeta.Name(proj.SourceLang))
	fmt.Fprintf(os.Stderr, "  Targets:       %s\n", strings.Join(proj.Languages, ", "))
	fmt.Fprintf(os.Stderr, "  Content roots: %s\n", strings.Join(proj.ContentRoots, ", "))
	fmt.Fprintf(os.Stderr, "  Registry:      %d content units\n", len(reg.Entries))

	if len(reg.Entries) == 0 {
		logInfo("Registry is empty. Run 'polyglot assign' to mint canonical IDs.")
		return nil
	}

	fmt.Fprintf(os.Stderr, "\n%sTranslations%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	for _, lang := range proj.Languages {
		var current, stale, missing int
		for _, id := range reg.IDs() {
			e, _ := reg.Get(id)
			if e.OriginalLanguage == lang {
				continue
			}
			rec, ok := e.Translations[lang]
			switch {
			case !ok || rec.Status == registry.StatusMissing:
				missing++
			case rec.Status == registry.StatusStale:
				stale++
			default:
				current++
			}
		}
		total := current + stale + missing
		pct := 0
		if total > 0 {
			pct = current * 100 / total
		}
		fmt.Fprintf(os.Stderr, "  %-5s %-12s %3d%%  (%d current, %d stale, %d missing)\n",
			lang, langmeta.Name(lang), pct, current, stale, missing)
	}

	if records, err := usagelog.ReadAll(proj.UsagePath()); err == nil && len(records) > 0 {
		totals := usagelog.Sum(records)
		fmt.Fprintf(os.Stderr, "\n%sUsage%s\n", colorBlue, colorReset)
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
		fmt.Fprintf(os.Stderr, "  %d AI calls, %d tokens, $%.4f, %.2f g CO2\n",
			totals.Calls, totals.InputTokens+totals.OutputTokens, totals.CostUSD, totals.CO2Grams)
	}
	if reporter, err := conflict.NewReporter(proj.ConflictsDir(), &conflict.FileSink{Dir: proj.ConflictsDir()}); err == nil {
		if n := reporter.OpenCount(); n > 0 {
			logWarning("%d open conflict reports (see 'polyglot conflicts')", n)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// assign (mint canonical IDs for new content)
// ---------------------------------------------------------------------------

func newAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Mint canonical IDs for new content files",
		Long: `Scan the content roots for markdown files without a canonical ID, mint
IDs, write them back into frontmatter, and seed registry entries.

Files sharing one slug without identity metadata are ambiguous. They are left
untouched and escalated as needs-review conflict reports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssign()
		},
	}

	return cmd
}

func runAssign() error {
	proj, reg, release, err := loadProject()
	if err != nil {
		return err
	}
	defer release()

	res, err := assign.Run(assign.Options{
		Registry:        reg,
		Root:            proj.Root,
		ContentRoots:    proj.ContentRoots,
		DefaultLanguage: proj.SourceLang,
		OnLog:           logInfo,
	})
	if err != nil {
		return err
	}
	if res.RegistryDirty {
		if err := reg.Save(time.Now()); err != nil {
			return err
		}
	}

	if len(res.Ambiguous) > 0 {
		reporter, err := conflict.NewReporter(proj.ConflictsDir(), &conflict.FileSink{Dir: proj.ConflictsDir()})
		if err != nil {
			return err
		}
		for _, g := range res.Ambiguous {
			logWarning("ambiguous slug %q: %d files, left unassigned", g.Slug, len(g.Paths))
			var b strings.Builder
			fmt.Fprintf(&b, "Multiple files share the slug `%s` but carry no identity metadata:\n\n", g.Slug)
			for i, p := range g.Paths {
				fmt.Fprintf(&b, "- `%s` (%s)\n", p, g.Languages[i])
			}
			b.WriteString("\nAdd `canonicalId` and `translationOf` frontmatter by hand, then rerun assign.\n")
			if _, err := reporter.Raise(conflict.Report{
				CanonicalID: "slug-" + g.Slug,
				Language:    "all",
				Kind:        conflict.KindNeedsReview,
				Title:       fmt.Sprintf("Ambiguous content group: %s", g.Slug),
				Body:        b.String(),
			}, time.Now()); err != nil {
				return err
			}
		}
	}

	logSuccess("scanned %d files: %d assigned, %d seeded, %d untouched, %d malformed, %d ambiguous",
		res.Scanned, res.Assigned, res.Seeded, res.Untouched, res.Malformed, len(res.Ambiguous))
	return nil
}

// ---------------------------------------------------------------------------
// detect (build the translation task list)
// ---------------------------------------------------------------------------

func newDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Build the translation task list",
		Long: `Re-hash every registered source file, refresh staleness in the registry,
and write the prioritized task list to .polyglot/tasks.json.

Override policy in .polyglot/overrides.yaml can pause detection or suppress
individual IDs, paths, or (id, language) pairs until an expiry date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect()
		},
	}

	return cmd
}

func runDetect() error {
	proj, reg, release, err := loadProject()
	if err != nil {
		return err
	}
	defer release()

	policy, err := detect.LoadPolicy(proj.OverridesPath())
	if err != nil {
		return err
	}
	res, err := detect.Run(detect.Options{
		Registry:  reg,
		Root:      proj.Root,
		Languages: append([]string{proj.SourceLang}, proj.Languages...),
		Policy:    policy,
		OnLog:     logInfo,
	})
	if err != nil {
		return err
	}
	if res.RegistryDirty {
		if err := reg.Save(time.Now()); err != nil {
			return err
		}
	}
	if err := detect.WriteTasks(proj.TasksPath(), res.Tasks); err != nil {
		return err
	}

	logSuccess("scanned %d entries: %d tasks (%d suppressed, %d malformed)",
		res.Scanned, len(res.Tasks), res.Suppressed, res.Malformed)
	for _, t := range res.Tasks {
		logInfo("  %-7s %s → %s", t.Reason, t.CanonicalID, t.TargetLanguage)
	}
	return nil
}

// ---------------------------------------------------------------------------
// translate (run tasks through the AI pipeline)
// ---------------------------------------------------------------------------

type translateArgs struct {
	providerID string
	model      string
	apiKey     string
	baseURL    string
	proxy      string
	timeout    int
	maxRetries int
	limit      int
	dryRun     bool
	noCommit   bool
}

func newTranslateCmd() *cobra.Command {
	a := &translateArgs{}

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Run translation tasks through the AI pipeline",
		Long: `Run the task list from .polyglot/tasks.json through the translation
pipeline: mask protected segments, call the AI provider, validate the result
structurally, and persist accepted translations with registry, progress, and
usage updates in one git commit.

Already-completed tasks (matching progress ledger keys) are skipped, so an
interrupted run resumes where it stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(a)
		},
	}

	cmd.Flags().StringVarP(&a.providerID, "provider", "p", "", "AI provider (openai, anthropic, google, groq, ollama, custom-openai)")
	cmd.Flags().StringVarP(&a.model, "model", "m", "", "Model name (provider default if empty)")
	cmd.Flags().StringVar(&a.apiKey, "api-key", "", "API key (overrides env and stored credentials)")
	cmd.Flags().StringVar(&a.baseURL, "base-url", "", "Custom endpoint URL (custom-openai, ollama)")
	cmd.Flags().StringVar(&a.proxy, "proxy", "", "HTTP(S) proxy URL")
	cmd.Flags().IntVar(&a.timeout, "timeout", 0, "Request timeout in seconds")
	cmd.Flags().IntVar(&a.maxRetries, "max-retries", 0, "Max retries per request")
	cmd.Flags().IntVarP(&a.limit, "limit", "n", 0, "Process at most N tasks (0 = all)")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "List pending tasks without calling the provider")
	cmd.Flags().BoolVar(&a.noCommit, "no-commit", false, "Do not create git commits")

	return cmd
}

func runTranslate(a *translateArgs) error {
	proj, reg, release, err := loadProject()
	if err != nil {
		return err
	}
	defer release()

	tasks, err := detect.ReadTasks(proj.TasksPath())
	if err != nil {
		return fmt.Errorf("reading task list (run 'polyglot detect' first): %w", err)
	}
	if a.limit > 0 && len(tasks) > a.limit {
		tasks = tasks[:a.limit]
	}

	ledger, err := progress.Load(proj.ProgressPath())
	if err != nil {
		return err
	}

	if a.dryRun {
		pending := 0
		for _, t := range tasks {
			if ledger.Done(t.Key()) {
				continue
			}
			pending++
			logInfo("%-7s %s → %s (%s)", t.Reason, t.CanonicalID, t.TargetLanguage, t.OutputPath)
		}
		logInfo("%d of %d tasks pending", pending, len(tasks))
		return nil
	}

	prov, err := buildProvider(proj, a)
	if err != nil {
		return err
	}

	reporter, err := conflict.NewReporter(proj.ConflictsDir(), &conflict.FileSink{Dir: proj.ConflictsDir()})
	if err != nil {
		return err
	}

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, finishing current task...")
		cancel()
	}()

	sum, err := generate.Run(ctx, &generate.Options{
		Registry:       reg,
		Progress:       ledger,
		UsagePath:      proj.UsagePath(),
		Completer:      prov,
		Reporter:       reporter,
		Root:           proj.Root,
		CommitEnabled:  proj.Commit && !a.noCommit,
		ScoreThreshold: proj.ScoreThreshold,
		ModelName:      prov.Model,
		OnLog:          logInfo,
	}, tasks)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logSuccess("processed %d tasks: %d committed, %d rejected, %d failed, %d skipped",
		sum.Processed, sum.Committed, sum.Rejected, sum.Failed, sum.Skipped)
	if sum.Failed > 0 {
		logWarning("%d of %d failures were transient; failed tasks stay pending and will be retried on the next run",
			sum.Transient, sum.Failed)
	}
	return nil
}

// buildProvider assembles the provider from defaults, project config, and
// flags, resolving the API key through flag → env → credential store.
func buildProvider(proj *config.Project, a *translateArgs) (*provider.Provider, error) {
	id := a.providerID
	if id == "" {
		id = proj.Provider
	}
	defaults := provider.Defaults()
	prov, ok := defaults[id]
	if !ok {
		names := make([]string, 0, len(defaults))
		for name := range defaults {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown provider %q (available: %s)", id, strings.Join(names, ", "))
	}

	if a.model != "" {
		prov.Model = a.model
	} else if proj.Model != "" {
		prov.Model = proj.Model
	}
	if a.baseURL != "" {
		prov.BaseURL = a.baseURL
	} else if proj.BaseURL != "" {
		prov.BaseURL = proj.BaseURL
	} else {
		stored, err := settings.StoredBaseURL(id)
		if err != nil {
			return nil, err
		}
		if stored != "" {
			prov.BaseURL = stored
		}
	}
	if a.proxy != "" {
		prov.Proxy = a.proxy
	} else if proj.Proxy != "" {
		prov.Proxy = proj.Proxy
	}
	if a.timeout > 0 {
		prov.Timeout = time.Duration(a.timeout) * time.Second
	}
	if a.maxRetries > 0 {
		prov.MaxRetries = a.maxRetries
	}
	prov.OnLog = logInfo

	key, err := settings.ResolveAPIKey(id, a.apiKey)
	if err != nil {
		return nil, err
	}
	if key == "" && id != "ollama" {
		return nil, fmt.Errorf("no API key for provider %q (set --api-key or the provider's env var)", id)
	}
	prov.APIKey = key

	return &prov, nil
}

// ---------------------------------------------------------------------------
// conflicts (scan for drift + list open reports)
// ---------------------------------------------------------------------------

func newConflictsCmd() *cobra.Command {
	var scan bool

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Scan for registry/filesystem drift and list open conflicts",
		Long: `List open conflict reports. With --scan, first compare the registry
against the filesystem and raise reports for stale translations, missing
files, and manually edited translation files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflicts(scan)
		},
	}

	cmd.Flags().BoolVar(&scan, "scan", false, "Scan registry vs filesystem before listing")

	return cmd
}

func runConflicts(scan bool) error {
	proj, reg, release, err := loadProject()
	if err != nil {
		return err
	}
	defer release()

	reporter, err := conflict.NewReporter(proj.ConflictsDir(), &conflict.FileSink{Dir: proj.ConflictsDir()})
	if err != nil {
		return err
	}

	if scan {
		raised := 0
		for _, r := range conflict.Scan(reg, proj.Root) {
			created, err := reporter.Raise(r, time.Now())
			if err != nil {
				return err
			}
			if created {
				raised++
				logWarning("%s: %s (%s)", r.Kind, r.CanonicalID, r.Language)
			}
		}
		logInfo("scan raised %d new reports", raised)
	}

	n := reporter.OpenCount()
	if n == 0 {
		logSuccess("no open conflicts")
		return nil
	}
	logWarning("%d open conflict reports under %s", n, proj.ConflictsDir())
	return nil
}

// ---------------------------------------------------------------------------
// usage (token/cost/CO2 statistics)
// ---------------------------------------------------------------------------

func newUsageCmd() *cobra.Command {
	var (
		byDay   bool
		byMonth bool
		byOp    bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show AI token, cost, and CO2 statistics",
		Long: `Aggregate the usage ledger: total tokens, estimated cost in USD, and
estimated CO2 in grams, optionally broken down by day, month, or operation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsage(byDay, byMonth, byOp, asJSON)
		},
	}

	cmd.Flags().BoolVar(&byDay, "by-day", false, "Break down by calendar day")
	cmd.Flags().BoolVar(&byMonth, "by-month", false, "Break down by calendar month")
	cmd.Flags().BoolVar(&byOp, "by-operation", false, "Break down by operation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full ledger as a JSON array on stdout")

	return cmd
}

func runUsage(byDay, byMonth, byOp, asJSON bool) error {
	proj, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	records, err := usagelog.ReadAll(proj.UsagePath())
	if err != nil {
		return err
	}

	if asJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	totals := usagelog.Sum(records)
	fmt.Fprintf(os.Stderr, "\n%sUsage%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Calls:     %d\n", totals.Calls)
	fmt.Fprintf(os.Stderr, "  Tokens:    %d in / %d out\n", totals.InputTokens, totals.OutputTokens)
	fmt.Fprintf(os.Stderr, "  Cost:      $%.4f\n", totals.CostUSD)
	fmt.Fprintf(os.Stderr, "  CO2:       %.2f g\n", totals.CO2Grams)

	var buckets []usagelog.Bucket
	switch {
	case byDay:
		buckets = usagelog.ByDay(records)
	case byMonth:
		buckets = usagelog.ByMonth(records)
	case byOp:
		buckets = usagelog.ByOperation(records)
	}
	if len(buckets) > 0 {
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
		for _, b := range buckets {
			fmt.Fprintf(os.Stderr, "  %-12s %4d calls  %8d/%8d tokens  $%.4f  %.2f g\n",
				b.Key, b.Calls, b.InputTokens, b.OutputTokens, b.CostUSD, b.CO2Grams)
		}
	}
	return nil
}
