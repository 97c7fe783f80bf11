// Package scan runs the incremental documentation pipeline: it
// partitions discovered files against the persisted cache, fans one
// task per file out to a fixed worker pool, and merges the collected
// results into the new cache and the repository summary.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"wraith/internal/cache"
	"wraith/internal/language"
	"wraith/internal/truncate"
	"wraith/internal/walker"
)

const defaultWorkers = 8

// Generator is the generation capability the pipeline consumes. An
// empty return value means "no result"; failures never propagate.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) string
}

// ProgressFunc receives one call per completed task, in completion
// order, regardless of per-task success or failure.
type ProgressFunc func(completed, total int)

// Config holds the scanner configuration.
type Config struct {
	Root        string
	DocsDir     string
	CachePath   string
	Workers     int
	MaxTokens   int
	Model       string
	ThreatModel bool
	OnProgress  ProgressFunc
}

// Stats reports scan results.
type Stats struct {
	FilesTotal   int
	FilesChanged int
	FilesReused  int
	FilesFailed  int
	// Summaries maps relative path to the per-file summary for every
	// successfully processed file, feeding the diagram stage.
	Summaries map[string]string
}

// fileTask is one unit of work, created before dispatch and consumed
// by exactly one worker.
type fileTask struct {
	relPath string
	absPath string
	profile *language.Profile
	changed bool
}

// taskResult is the immutable value a worker returns. All shared-state
// mutation happens after collection, on the coordinating goroutine.
type taskResult struct {
	ok            bool
	relPath       string
	changed       bool
	summary       string
	documentation string
	threat        string
}

// Scanner drives one scan over a repository root.
type Scanner struct {
	cfg      Config
	registry *language.Registry
	gen      Generator
}

// New creates a Scanner. Zero config values fall back to defaults:
// 8 workers, 4096-token truncation budget.
func New(cfg Config, registry *language.Registry, gen Generator) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Scanner{cfg: cfg, registry: registry, gen: gen}
}

// WithProgress sets the progress callback and returns the scanner.
func (s *Scanner) WithProgress(fn ProgressFunc) *Scanner {
	s.cfg.OnProgress = fn
	return s
}

// Run executes the full pipeline. Per-file failures are isolated and
// logged; only catastrophic conditions (unreadable tree, unwritable
// cache or docs directory) surface as an error. The cache file is
// rewritten atomically once, after all workers have finished.
func (s *Scanner) Run(ctx context.Context) (*Stats, error) {
	prev := cache.Load(s.cfg.CachePath)
	if prev.Empty() {
		logrus.Info("no usable cache, running full scan")
	}

	paths, err := walker.Discover(s.cfg.Root, s.registry.Extensions())
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	changed, hashes := cache.Partition(s.cfg.Root, paths, prev)

	if err := os.MkdirAll(s.cfg.DocsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create docs directory: %w", err)
	}

	var tasks []fileTask
	for _, rel := range paths {
		if _, ok := hashes[rel]; !ok {
			continue // not a regular file, or unhashable
		}
		profile := s.registry.Lookup(rel)
		if profile == nil {
			continue
		}
		tasks = append(tasks, fileTask{
			relPath: rel,
			absPath: filepath.Join(s.cfg.Root, filepath.FromSlash(rel)),
			profile: profile,
			changed: changed[rel],
		})
	}

	results := s.runPool(ctx, tasks, prev)

	// Merge point: the only place cache and summary state is mutated,
	// single-threaded after full pool completion, so no locks needed.
	next := cache.NewRecord()
	stats := &Stats{
		FilesTotal: len(tasks),
		Summaries:  make(map[string]string),
	}
	for _, r := range results {
		switch {
		case r.ok:
			next.Hashes[r.relPath] = hashes[r.relPath]
			next.Summaries[r.relPath] = r.summary
			stats.Summaries[r.relPath] = r.summary
			if r.changed {
				stats.FilesChanged++
			} else {
				stats.FilesReused++
			}
		default:
			stats.FilesFailed++
			// Carry the prior entry so the file is re-detected as
			// changed and retried on the next run. First-appearance
			// failures stay absent.
			if h, ok := prev.Hashes[r.relPath]; ok {
				next.Hashes[r.relPath] = h
				if sum, ok := prev.Summaries[r.relPath]; ok {
					next.Summaries[r.relPath] = sum
				}
			}
		}
	}

	if err := s.writeRepositorySummary(results); err != nil {
		logrus.WithError(err).Warn("writing repository summary failed")
	}
	if s.cfg.ThreatModel {
		if err := s.writeThreatReport(results); err != nil {
			logrus.WithError(err).Warn("writing threat report failed")
		}
	}

	if err := next.Save(s.cfg.CachePath); err != nil {
		return stats, fmt.Errorf("persist cache: %w", err)
	}

	if stats.FilesFailed > 0 {
		logrus.WithField("failed", stats.FilesFailed).Warn("some files were skipped and will be retried next run")
	}
	return stats, nil
}

// runPool dispatches tasks to a fixed-size worker pool and collects
// every result on the coordinating goroutine. Completion is defined as
// all dispatched tasks collected, regardless of individual outcomes.
func (s *Scanner) runPool(ctx context.Context, tasks []fileTask, prev *cache.Record) []taskResult {
	taskCh := make(chan fileTask)
	resultCh := make(chan taskResult)

	var wg sync.WaitGroup
	for range s.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				resultCh <- s.process(ctx, t, prev)
			}
		}()
	}

	go func() {
		for _, t := range tasks {
			taskCh <- t
		}
		close(taskCh)
		wg.Wait()
		close(resultCh)
	}()

	results := make([]taskResult, 0, len(tasks))
	for r := range resultCh {
		results = append(results, r)
		if s.cfg.OnProgress != nil {
			s.cfg.OnProgress(len(results), len(tasks))
		}
	}
	return results
}

// process handles one file end to end. Every failure is caught at this
// boundary and reported through the result value, never as a panic or
// a run abort. prev is read-only here.
func (s *Scanner) process(ctx context.Context, t fileTask, prev *cache.Record) taskResult {
	res := taskResult{relPath: t.relPath, changed: t.changed}

	if !t.changed {
		if sum, ok := prev.Summaries[t.relPath]; ok && sum != "" {
			res.ok = true
			res.summary = sum
			// Reload previously written documentation; best effort,
			// the summary is what downstream stages consume.
			if doc, err := os.ReadFile(s.docPath(t.relPath)); err == nil {
				res.documentation = string(doc)
			}
			return res
		}
		// Hash matched but no summary was cached; regenerate.
		logrus.WithField("file", t.relPath).Debug("unchanged file missing cached summary, regenerating")
	}

	raw, err := os.ReadFile(t.absPath)
	if err != nil {
		logrus.WithError(err).WithField("file", t.relPath).Warn("read failed, skipping file")
		return res
	}

	code := truncate.Fit(string(raw), t.profile.SectionStart, s.cfg.MaxTokens)

	doc := s.gen.Generate(ctx, buildDocumentationPrompt(code), s.cfg.Model)
	if doc == "" {
		logrus.WithField("file", t.relPath).Warn("no documentation generated, skipping file")
		return res
	}

	if err := s.writeDocumentation(t, doc); err != nil {
		logrus.WithError(err).WithField("file", t.relPath).Warn("write failed, skipping file")
		return res
	}

	res.ok = true
	res.changed = true
	res.summary = deriveSummary(doc)
	res.documentation = doc

	if s.cfg.ThreatModel {
		res.threat = s.gen.Generate(ctx, buildThreatModelPrompt(doc, t.profile.ID), s.cfg.Model)
	}
	return res
}

// docPath returns the deterministic artifact path for a source file:
// its basename plus ".docs.md" under the docs directory.
func (s *Scanner) docPath(relPath string) string {
	return filepath.Join(s.cfg.DocsDir, filepath.Base(relPath)+".docs.md")
}

func (s *Scanner) writeDocumentation(t fileTask, doc string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Code Documentation\n", titleCase(t.profile.ID))
	b.WriteString(doc)
	return os.WriteFile(s.docPath(t.relPath), []byte(b.String()), 0o644)
}

func (s *Scanner) writeRepositorySummary(results []taskResult) error {
	ordered := successfulByPath(results)

	var b strings.Builder
	b.WriteString("# Repository Overview\n\n")
	for _, r := range ordered {
		fmt.Fprintf(&b, "- **%s**: %s\n", r.relPath, r.summary)
	}
	return os.WriteFile(filepath.Join(s.cfg.DocsDir, "summary.docs.md"), []byte(b.String()), 0o644)
}

func (s *Scanner) writeThreatReport(results []taskResult) error {
	ordered := successfulByPath(results)

	var b strings.Builder
	for _, r := range ordered {
		if strings.TrimSpace(r.threat) == "" {
			continue
		}
		fmt.Fprintf(&b, "File: %s\n", r.relPath)
		b.WriteString("Potential Business Logic Flaws:\n")
		b.WriteString(r.threat)
		b.WriteString("\n" + strings.Repeat("=", 40) + "\n")
	}
	return os.WriteFile(filepath.Join(s.cfg.DocsDir, "logic-flaws.analysis.md"), []byte(b.String()), 0o644)
}

func successfulByPath(results []taskResult) []taskResult {
	ordered := make([]taskResult, 0, len(results))
	for _, r := range results {
		if r.ok {
			ordered = append(ordered, r)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].relPath < ordered[j].relPath })
	return ordered
}

// deriveSummary takes the first paragraph of the documentation, or its
// first line when there is no blank-line break.
func deriveSummary(doc string) string {
	if i := strings.Index(doc, "\n\n"); i >= 0 {
		return strings.TrimSpace(doc[:i])
	}
	if i := strings.Index(doc, "\n"); i >= 0 {
		return strings.TrimSpace(doc[:i])
	}
	return strings.TrimSpace(doc)
}

func titleCase(id string) string {
	if id == "" {
		return id
	}
	return strings.ToUpper(id[:1]) + id[1:]
}
