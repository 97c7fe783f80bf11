// Package cache persists per-file content hashes and summaries between
// scans and classifies discovered files as changed or unchanged.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const (
	// fullHashLimit is the largest file hashed in full. Above it only
	// head and tail windows plus the byte length are hashed, which
	// bounds hashing cost but can miss interior-only edits beyond the
	// sampled windows.
	fullHashLimit = 10 << 20

	// sampleSize is the window hashed from each end of a large file.
	sampleSize = 64 << 10
)

// Record is the persisted scan state: content hash and summary per
// repo-relative path. A zero-value or empty record forces a full run.
type Record struct {
	Hashes    map[string]string `json:"hashes"`
	Summaries map[string]string `json:"summaries"`
}

// NewRecord returns an empty record with initialized maps.
func NewRecord() *Record {
	return &Record{
		Hashes:    make(map[string]string),
		Summaries: make(map[string]string),
	}
}

// Empty reports whether the record holds no hashes.
func (r *Record) Empty() bool {
	return r == nil || len(r.Hashes) == 0
}

// Load reads a record from path. A missing, unreadable, or malformed
// file yields an empty record so the next scan treats every file as
// changed.
func Load(path string) *Record {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", path).Warn("cache unreadable, forcing full run")
		}
		return NewRecord()
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("cache malformed, forcing full run")
		return NewRecord()
	}
	if rec.Hashes == nil {
		rec.Hashes = make(map[string]string)
	}
	if rec.Summaries == nil {
		rec.Summaries = make(map[string]string)
	}
	return &rec
}

// Save writes the record as JSON via a temp file and rename, so a crash
// never leaves the cache partially written.
func (r *Record) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// HashFile computes the content hash for a file. Files up to
// fullHashLimit are hashed in full; larger files hash a head window,
// the decimal byte length, and a tail window.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	if info.Size() <= fullHashLimit {
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	head := make([]byte, sampleSize)
	if _, err := io.ReadFull(f, head); err != nil {
		return "", err
	}
	h.Write(head)

	fmt.Fprintf(h, "%d", info.Size())

	tail := make([]byte, sampleSize)
	if _, err := f.ReadAt(tail, info.Size()-sampleSize); err != nil {
		return "", err
	}
	h.Write(tail)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Partition classifies each discovered path as changed or unchanged
// relative to prev and returns the hash set for the current run. Paths
// that do not resolve to regular files are excluded from both outputs.
// It never mutates prev or touches the cache file.
func Partition(root string, paths []string, prev *Record) (changed map[string]bool, hashes map[string]string) {
	changed = make(map[string]bool)
	hashes = make(map[string]string, len(paths))

	for _, rel := range paths {
		abs := filepath.Join(root, filepath.FromSlash(rel))

		info, err := os.Lstat(abs)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		hash, err := HashFile(abs)
		if err != nil {
			logrus.WithError(err).WithField("file", rel).Warn("hashing failed, skipping")
			continue
		}
		hashes[rel] = hash

		if prev == nil || prev.Hashes[rel] != hash {
			changed[rel] = true
		}
	}
	return changed, hashes
}
