package store

import "time"

// Run records one completed scan over a repository.
type Run struct {
	ID           int64
	Root         string
	StartedAt    time.Time
	Duration     time.Duration
	FilesTotal   int
	FilesChanged int
	FilesReused  int
	FilesFailed  int
	// SamplePercent is the share of summaries the diagram prompt
	// could carry; below 100 means sampled degradation.
	SamplePercent float64
	UsedFallback  bool
}
