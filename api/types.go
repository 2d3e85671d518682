package api

import (
	"time"
)

// Status is the outcome of a pipeline's latest execution
type Status string

const (
	StatusSucceeded  Status = "Succeeded"
	StatusFailed     Status = "Failed"
	StatusInProgress Status = "InProgress"
	StatusStopped    Status = "Stopped"
	StatusSuperseded Status = "Superseded"
	StatusUnknown    Status = "Unknown"
)

// Placeholder values rendered when enrichment data is unavailable for a pipeline
const (
	BranchUnknown            = "unknown"
	CommitMessageUnavailable = "N/A"
)

// ParseStatus maps a remote execution status to a Status, defaulting to
// StatusUnknown for values this tool doesn't know about
func ParseStatus(value string) Status {
	switch value {
	case "Succeeded":
		return StatusSucceeded
	case "Failed":
		return StatusFailed
	case "InProgress":
		return StatusInProgress
	case "Stopped", "Stopping":
		return StatusStopped
	case "Superseded":
		return StatusSuperseded
	}

	return StatusUnknown
}

// PipelineSummary identifies a single pipeline retained by the name filters
type PipelineSummary struct {
	Name string
}

// ExecutionInfo holds the latest execution state for a single pipeline;
// StartedAt and StoppedAt are nil when the remote service doesn't report them
type ExecutionInfo struct {
	PipelineName  string
	Branch        string
	Status        Status
	StartedAt     *time.Time
	StoppedAt     *time.Time
	CommitMessage string
}

// ReportRow joins a filtered pipeline with its enrichment outcome; a pipeline
// whose enrichment partially failed still produces a row, with Degraded set
// and the first failure recorded in DegradedReason
type ReportRow struct {
	Pipeline       PipelineSummary
	Execution      ExecutionInfo
	Degraded       bool
	DegradedReason string
}
