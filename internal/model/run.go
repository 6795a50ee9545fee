package model

import "time"

// RunStatus tracks the lifecycle of a batch pipeline execution.
type RunStatus string

// Valid run statuses. A run transitions running -> success|failed exactly once.
const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// BatchRun is one execution of the batch clustering + recommendation
// pipeline. Notes holds opaque JSON: cluster count, customer count and
// quality metrics on success, the error description on failure.
type BatchRun struct {
	StartedAt  time.Time
	FinishedAt *time.Time
	ID         int64
	Status     RunStatus
	Notes      string
}

// ClusterAssignment ties a customer to a cluster for a specific run.
// Unique per (RunID, CustomerID).
//
// DistanceToCentroid is a placeholder random value on the aggregate-features
// path and must not be relied on for precision; the category path records
// true Euclidean distance.
type ClusterAssignment struct {
	RunID              int64
	CustomerID         string
	ClusterID          int
	DistanceToCentroid float64
}
