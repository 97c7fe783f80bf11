package walker

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// defaultIgnores are used when no .wraithignore file exists. They cover
// VCS metadata, dependency and build output directories, and the usual
// installation manifests that carry no documentable logic.
var defaultIgnores = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"venv",
	".venv",
	"env",
	"__pycache__",
	".pytest_cache",
	".mypy_cache",
	".ruff_cache",
	".idea",
	".vscode",
	".wraith",
	"dist",
	"build",
	"setup.py",
	"setup.cfg",
	"setup.sh",
	"install.sh",
	"requirements.txt",
	"Pipfile",
	"Pipfile.lock",
	"package.json",
	"package-lock.json",
	"yarn.lock",
	"composer.json",
	"composer.lock",
	"Gemfile",
	"Gemfile.lock",
}

// Discover walks the tree rooted at root and returns the repo-relative
// paths of candidate source files, sorted and deduplicated. It only
// emits files whose extension is in allowedExts, skips symlinks, empty
// files, hidden files, and anything matching .wraithignore patterns.
func Discover(root string, allowedExts map[string]bool) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	ignores := loadIgnorePatterns(absRoot)
	seen := make(map[string]bool)
	var paths []string

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors, keep walking
		}

		rel, _ := filepath.Rel(absRoot, path)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if matchesIgnore(d.Name(), rel, ignores) {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		name := d.Name()
		if matchesIgnore(name, rel, ignores) {
			return nil
		}
		// Hidden files carry editor or tooling state, not source.
		if strings.HasPrefix(name, ".") {
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if !allowedExts[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() == 0 {
			return nil
		}

		if !seen[rel] {
			seen[rel] = true
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// loadIgnorePatterns reads .wraithignore from the repository root.
// If the file doesn't exist, it creates one with the default patterns.
func loadIgnorePatterns(root string) []string {
	ignorePath := filepath.Join(root, ".wraithignore")

	f, err := os.Open(ignorePath)
	if err != nil {
		// File doesn't exist — create it with defaults.
		createDefaultIgnoreFile(ignorePath)
		return defaultIgnores
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if len(patterns) == 0 {
		return defaultIgnores
	}
	return patterns
}

func createDefaultIgnoreFile(path string) {
	var b strings.Builder
	b.WriteString("# Files and directories excluded from scanning.\n")
	b.WriteString("# One pattern per line. Supports exact names and globs.\n\n")
	for _, p := range defaultIgnores {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	// Best-effort write; if it fails the defaults are still used in memory.
	os.WriteFile(path, []byte(b.String()), 0o644)
}

// matchesIgnore checks if a name or relative path matches any ignore pattern.
func matchesIgnore(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		// Exact name match (e.g. "node_modules", "yarn.lock").
		if name == p {
			return true
		}
		// Path match at a segment boundary (e.g. "third_party/vendor"
		// covers its subtree but not "third_party/vendored.go").
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		// Glob match against the relative path.
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}
