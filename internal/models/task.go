package models

import "time"

// EnrichmentTask is one queued request to detect and/or enrich a single
// board card. A card id maps to at most one non-terminal task at a time.
type EnrichmentTask struct {
	ID     string `boltholdKey:"ID"`
	CardID string `boltholdIndex:"CardID"`

	Title       string
	ContentType ContentType // may be "unknown" pending detection
	Year        int         // 0 unless submitted with a known type
	Bundle      TextBundle

	Priority    Priority
	Status      TaskStatus `boltholdIndex:"Status"`
	Attempts    int
	MaxAttempts int
	WorkerID    string
	LastError   string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// TaskResult is what a finished task hands back to waiters and
// subscribers.
type TaskResult struct {
	Success   bool
	Detection *DetectionResult
	Data      *EnrichedData // nil on a clean "no upstream match"
	Issues    []ValidationIssue
	Err       string
}
