package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wraith/internal/cache"
	"wraith/internal/language"
)

// fakeGen scripts the generation capability. It is called from
// multiple workers, so it guards its call log.
type fakeGen struct {
	mu      sync.Mutex
	prompts []string
	fail    func(prompt string) bool
}

func (g *fakeGen) Generate(ctx context.Context, prompt, model string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.fail != nil && g.fail(prompt) {
		return ""
	}
	return "Documents the module's main entry points.\n\nLonger detail follows here."
}

func (g *fakeGen) docCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, p := range g.prompts {
		if strings.Contains(p, "technical writer") {
			n++
		}
	}
	return n
}

func writeRepo(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newScanner(root string, gen Generator) *Scanner {
	return New(Config{
		Root:      root,
		DocsDir:   filepath.Join(root, ".wraith", "docs"),
		CachePath: filepath.Join(root, ".wraith", "cache.json"),
		Workers:   4,
		MaxTokens: 500,
	}, language.NewRegistry(nil, nil), gen)
}

func TestScanEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeRepo(t, root, map[string]string{
		"a.py":     "def main():\n    return 1\n",
		"b.go":     "package b\n\nfunc B() int { return 2 }\n",
		"sub/c.js": "function c() { return 3 }\n",
	})

	gen := &fakeGen{}
	stats, err := newScanner(root, gen).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.FilesTotal)
	assert.Equal(t, 3, stats.FilesChanged)
	assert.Equal(t, 0, stats.FilesReused)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 3, gen.docCalls())

	docsDir := filepath.Join(root, ".wraith", "docs")
	for _, name := range []string{"a.py.docs.md", "b.go.docs.md", "c.js.docs.md"} {
		_, err := os.Stat(filepath.Join(docsDir, name))
		assert.NoErrorf(t, err, "documentation artifact %s", name)
	}

	doc, err := os.ReadFile(filepath.Join(docsDir, "a.py.docs.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(doc), "# Python Code Documentation\n"))

	summary, err := os.ReadFile(filepath.Join(docsDir, "summary.docs.md"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "# Repository Overview")
	assert.Contains(t, string(summary), "- **a.py**: Documents the module's main entry points.")
	assert.Contains(t, string(summary), "- **sub/c.js**:")

	rec := cache.Load(filepath.Join(root, ".wraith", "cache.json"))
	assert.Len(t, rec.Hashes, 3)
	assert.Equal(t, "Documents the module's main entry points.", rec.Summaries["a.py"])
}

func TestScanIdempotence(t *testing.T) {
	root := t.TempDir()
	writeRepo(t, root, map[string]string{
		"a.py": "def main():\n    return 1\n",
		"b.go": "package b\n\nfunc B() int { return 2 }\n",
	})

	_, err := newScanner(root, &fakeGen{}).Run(context.Background())
	require.NoError(t, err)

	cacheFile := filepath.Join(root, ".wraith", "cache.json")
	first, err := os.ReadFile(cacheFile)
	require.NoError(t, err)

	gen := &fakeGen{}
	stats, err := newScanner(root, gen).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, len(gen.prompts), "no generation calls on an unchanged tree")
	assert.Equal(t, 2, stats.FilesReused)
	assert.Equal(t, 0, stats.FilesChanged)

	second, err := os.ReadFile(cacheFile)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "cache file must be byte-identical")
}

func TestScanRegeneratesOnlyChangedFile(t *testing.T) {
	root := t.TempDir()
	writeRepo(t, root, map[string]string{
		"a.py": "def main():\n    return 1\n",
		"b.go": "package b\n\nfunc B() int { return 2 }\n",
		"c.rb": "def c\n  3\nend\n",
	})

	_, err := newScanner(root, &fakeGen{}).Run(context.Background())
	require.NoError(t, err)
	before := cache.Load(filepath.Join(root, ".wraith", "cache.json"))

	writeRepo(t, root, map[string]string{
		"b.go": "package b\n\nfunc B() int { return 20 }\n",
	})

	gen := &fakeGen{}
	stats, err := newScanner(root, gen).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, gen.docCalls(), "exactly one documentation generation call")
	assert.Equal(t, 1, stats.FilesChanged)
	assert.Equal(t, 2, stats.FilesReused)

	after := cache.Load(filepath.Join(root, ".wraith", "cache.json"))
	assert.Equal(t, before.Hashes["a.py"], after.Hashes["a.py"])
	assert.Equal(t, before.Hashes["c.rb"], after.Hashes["c.rb"])
	assert.NotEqual(t, before.Hashes["b.go"], after.Hashes["b.go"])
}

func TestScanFailureIsolationFirstAppearance(t *testing.T) {
	root := t.TempDir()
	writeRepo(t, root, map[string]string{
		"a.py": "def main():\n    return 1\n",
		"b.go": "package b\n\nfunc POISON() int { return 2 }\n",
		"c.rb": "def c\n  3\nend\n",
	})

	gen := &fakeGen{fail: func(prompt string) bool {
		return strings.Contains(prompt, "POISON")
	}}
	stats, err := newScanner(root, gen).Run(context.Background())
	require.NoError(t, err, "a per-file failure must not abort the run")

	assert.Equal(t, 2, stats.FilesChanged)
	assert.Equal(t, 1, stats.FilesFailed)

	docsDir := filepath.Join(root, ".wraith", "docs")
	_, err = os.Stat(filepath.Join(docsDir, "a.py.docs.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(docsDir, "c.rb.docs.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(docsDir, "b.go.docs.md"))
	assert.True(t, os.IsNotExist(err), "failed file must not produce an artifact")

	rec := cache.Load(filepath.Join(root, ".wraith", "cache.json"))
	_, ok := rec.Hashes["b.go"]
	assert.False(t, ok, "first-appearance failure leaves no cache entry")

	// With the failure gone, only the failed file is regenerated.
	gen2 := &fakeGen{}
	stats, err = newScanner(root, gen2).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gen2.docCalls())
	assert.Equal(t, 1, stats.FilesChanged)
	assert.Equal(t, 2, stats.FilesReused)
}

func TestScanFailureKeepsPriorCacheEntry(t *testing.T) {
	root := t.TempDir()
	writeRepo(t, root, map[string]string{
		"a.py": "def main():\n    return 1\n",
		"b.go": "package b\n\nfunc B() int { return 2 }\n",
	})

	_, err := newScanner(root, &fakeGen{}).Run(context.Background())
	require.NoError(t, err)
	before := cache.Load(filepath.Join(root, ".wraith", "cache.json"))

	writeRepo(t, root, map[string]string{
		"b.go": "package b\n\nfunc POISON() int { return 2 }\n",
	})

	gen := &fakeGen{fail: func(prompt string) bool {
		return strings.Contains(prompt, "POISON")
	}}
	stats, err := newScanner(root, gen).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFailed)

	after := cache.Load(filepath.Join(root, ".wraith", "cache.json"))
	assert.Equal(t, before.Hashes["b.go"], after.Hashes["b.go"],
		"failed file keeps its prior-run hash so it is retried next run")
	assert.Equal(t, before.Summaries["b.go"], after.Summaries["b.go"])
}

func TestScanProgressCounter(t *testing.T) {
	root := t.TempDir()
	writeRepo(t, root, map[string]string{
		"a.py": "def a():\n    return 1\n",
		"b.py": "def b():\n    return 2\n",
		"c.py": "def c():\n    return 3\n",
		"d.py": "def d():\n    return 4\n",
	})

	var updates []int
	s := newScanner(root, &fakeGen{}).WithProgress(func(completed, total int) {
		assert.Equal(t, 4, total)
		updates = append(updates, completed)
	})

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, updates, 4, "one update per completed task")
	for i, c := range updates {
		assert.Equal(t, i+1, c, "progress must be monotonic")
	}
}

func TestScanPrunesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeRepo(t, root, map[string]string{
		"a.py": "def a():\n    return 1\n",
		"b.py": "def b():\n    return 2\n",
	})

	_, err := newScanner(root, &fakeGen{}).Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "b.py")))

	_, err = newScanner(root, &fakeGen{}).Run(context.Background())
	require.NoError(t, err)

	rec := cache.Load(filepath.Join(root, ".wraith", "cache.json"))
	_, ok := rec.Hashes["b.py"]
	assert.False(t, ok, "stale cache entries are pruned after the run")
	_, ok = rec.Hashes["a.py"]
	assert.True(t, ok)
}

func TestScanThreatModelReport(t *testing.T) {
	root := t.TempDir()
	writeRepo(t, root, map[string]string{
		"a.py": "def main():\n    return 1\n",
	})

	gen := &fakeGen{}
	s := New(Config{
		Root:        root,
		DocsDir:     filepath.Join(root, ".wraith", "docs"),
		CachePath:   filepath.Join(root, ".wraith", "cache.json"),
		Workers:     2,
		MaxTokens:   500,
		ThreatModel: true,
	}, language.NewRegistry(nil, nil), gen)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	report, err := os.ReadFile(filepath.Join(root, ".wraith", "docs", "logic-flaws.analysis.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "File: a.py")
	assert.Contains(t, string(report), "Potential Business Logic Flaws:")
}

func TestDeriveSummary(t *testing.T) {
	assert.Equal(t, "First paragraph.", deriveSummary("First paragraph.\n\nSecond paragraph."))
	assert.Equal(t, "Only line one.", deriveSummary("Only line one.\nLine two no blank."))
	assert.Equal(t, "Whole doc.", deriveSummary("Whole doc."))
}
