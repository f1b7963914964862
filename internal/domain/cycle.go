package domain

import "time"

// StageResult summarizes one stage's outcome within a cycle. Err holds the
// stage-level failure, if any; item-level failures are only counted.
type StageResult struct {
	Stage     string
	Processed int
	Failed    int
	Skipped   int
	Retried   int
	Err       error
	Duration  time.Duration
}

// CycleStats is the always-produced summary of one pipeline cycle.
type CycleStats struct {
	StartedAt time.Time
	Duration  time.Duration
	Stages    []StageResult
	Success   bool
}

// IngestStats summarizes one ingest stage run.
type IngestStats struct {
	Fetched    int
	Selected   int
	Inserted   int
	Duplicates int
	Errors     int
}
