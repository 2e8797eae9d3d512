package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a dataset within a run.
type Status string

const (
	StatusPending        Status = "pending"
	StatusClassifying    Status = "classifying"
	StatusAligning       Status = "aligning"
	StatusReconstructing Status = "reconstructing"
	StatusRotating       Status = "rotating"
	StatusTraining       Status = "training"
	StatusRefining       Status = "refining"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusSkipped        Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusClassifying,
	StatusAligning,
	StatusReconstructing,
	StatusRotating,
	StatusTraining,
	StatusRefining,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusClassifying:    {},
	StatusAligning:       {},
	StatusReconstructing: {},
	StatusRotating:       {},
	StatusTraining:       {},
	StatusRefining:       {},
}

// RunStatus represents the lifecycle of a recorded pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run kinds recorded in the ledger.
const (
	RunKindHalfsets = "halfsets"
	RunKindDenoise  = "denoise"
)

// Run modes mirror the MODE command argument: pipeline runs chain into the
// next processing step, standalone runs stop after their own work.
const (
	ModePipeline   = "pipeline"
	ModeStandalone = "standalone"
)

// Run records one pipeline invocation over a scan root.
type Run struct {
	ID         string
	Kind       string
	Mode       string
	Root       string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Completed  int
	Failed     int
	Skipped    int
}

// Item represents one dataset tracked by the ledger for a single run.
type Item struct {
	ID              int64
	RunID           string
	Name            string
	Directory       string
	MetadataState   string
	Status          Status
	ProgressStage   string
	ProgressMessage string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RunSummary aggregates dataset counts for one run.
type RunSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Skipped    int
}

// AllStatuses returns the ordered list of known dataset statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the dataset is mid-stage.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status is final for the run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// SetProgress updates both progress fields atomically.
// Use this instead of setting ProgressStage and ProgressMessage individually.
func (i *Item) SetProgress(stage, message string) {
	i.ProgressStage = stage
	i.ProgressMessage = message
}

// SetFailed marks the dataset as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressStage = "Failed"
	i.ProgressMessage = message
}

// SetSkipped marks the dataset as skipped with a human-readable reason.
// Skipped datasets are not failures; the run continues past them.
func (i *Item) SetSkipped(reason string) {
	i.Status = StatusSkipped
	i.ErrorMessage = ""
	i.ProgressStage = "Skipped"
	i.ProgressMessage = reason
}

// SetCompleted marks the dataset as fully processed.
func (i *Item) SetCompleted(message string) {
	i.Status = StatusCompleted
	i.ErrorMessage = ""
	i.ProgressStage = "Completed"
	i.ProgressMessage = message
}
