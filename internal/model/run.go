package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one pipeline execution. The run directory on disk holds the
// stage snapshots; this record is the ledger entry.
type Run struct {
	ID          string    `json:"id"`
	Dir         string    `json:"dir"`
	Status      RunStatus `json:"status"`
	SeedCount   int       `json:"seed_count"`
	EnrichCount int       `json:"enrich_count"`
	FilterCount int       `json:"filter_count"`
	ScoredCount int       `json:"scored_count"`
	ExportCount int       `json:"export_count"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}
