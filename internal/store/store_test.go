package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestRecordAndListRuns(t *testing.T) {
	h := openTestHistory(t)

	id, err := h.RecordRun(Run{
		Root:          "/repo",
		StartedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Duration:      90 * time.Second,
		FilesTotal:    40,
		FilesChanged:  5,
		FilesReused:   34,
		FilesFailed:   1,
		SamplePercent: 80,
		UsedFallback:  true,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	runs, err := h.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "/repo", got.Root)
	assert.Equal(t, 90*time.Second, got.Duration)
	assert.Equal(t, 40, got.FilesTotal)
	assert.Equal(t, 5, got.FilesChanged)
	assert.Equal(t, 34, got.FilesReused)
	assert.Equal(t, 1, got.FilesFailed)
	assert.Equal(t, 80.0, got.SamplePercent)
	assert.True(t, got.UsedFallback)
	assert.True(t, got.StartedAt.Equal(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)))
}

func TestListRunsNewestFirstWithLimit(t *testing.T) {
	h := openTestHistory(t)

	for i := range 5 {
		_, err := h.RecordRun(Run{
			Root:       "/repo",
			StartedAt:  time.Now(),
			FilesTotal: i,
		})
		require.NoError(t, err)
	}

	runs, err := h.ListRuns(3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, 4, runs[0].FilesTotal)
	assert.Equal(t, 3, runs[1].FilesTotal)
	assert.Equal(t, 2, runs[2].FilesTotal)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	h1, err := Open(path)
	require.NoError(t, err)
	_, err = h1.RecordRun(Run{Root: "/repo", StartedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, h1.Close())

	// Reopening an existing database preserves prior rows.
	h2, err := Open(path)
	require.NoError(t, err)
	defer h2.Close()

	runs, err := h2.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
