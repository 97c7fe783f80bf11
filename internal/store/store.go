// Package store keeps scan run history in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// History persists one row per scan run.
type History struct {
	db *sql.DB
}

// Open creates or opens the history database at the given path and
// initializes the schema.
func Open(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &History{db: db}, nil
}

// RecordRun inserts a run row and returns its ID.
func (h *History) RecordRun(r Run) (int64, error) {
	res, err := h.db.Exec(
		`INSERT INTO runs (root, started_at, duration_ms, files_total, files_changed, files_reused, files_failed, sample_pct, used_fallback)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Root, r.StartedAt.UTC(), r.Duration.Milliseconds(),
		r.FilesTotal, r.FilesChanged, r.FilesReused, r.FilesFailed,
		r.SamplePercent, boolToInt(r.UsedFallback),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRuns returns the most recent runs, newest first.
func (h *History) ListRuns(limit int) ([]Run, error) {
	rows, err := h.db.Query(
		`SELECT id, root, started_at, duration_ms, files_total, files_changed, files_reused, files_failed, sample_pct, used_fallback
		 FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMS int64
		var fallback int
		if err := rows.Scan(
			&r.ID, &r.Root, &r.StartedAt, &durationMS,
			&r.FilesTotal, &r.FilesChanged, &r.FilesReused, &r.FilesFailed,
			&r.SamplePercent, &fallback,
		); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.UsedFallback = fallback != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
