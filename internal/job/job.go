package job

import (
	"fmt"
	"time"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusQueued              Status = "queued"
	StatusProcessing          Status = "processing"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed:
		return true
	}
	return false
}

func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusProcessing:
		return 1
	default:
		return 2
	}
}

// advance validates a forward-only status transition.
func advance(from, to Status) error {
	if from == to {
		return nil
	}
	if from.Terminal() {
		return fmt.Errorf("job is already %s", from)
	}
	if to.rank() <= from.rank() {
		return fmt.Errorf("status cannot move from %s to %s", from, to)
	}
	return nil
}

// Job is the persisted record of one generation run.
type Job struct {
	ID              string            `json:"job_id"`
	Status          Status            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	TotalItems      int               `json:"total_items"`
	ProcessedItems  int               `json:"processed_items"`
	SuccessfulItems int               `json:"successful_items"`
	FailedItems     int               `json:"failed_items"`
	OutputDir       string            `json:"output_dir,omitempty"`
	Archive         string            `json:"archive,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Failure is one recorded row failure.
type Failure struct {
	ItemID    string    `json:"item_id"`
	Reason    string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
