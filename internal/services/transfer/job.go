package transfer

import (
	"context"
	"time"

	"rehbersync/internal/progress"
)

// Status is a transfer job's lifecycle state. Terminal states are absorbing.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusWaitingLogin Status = "waiting_login"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusError        Status = "error"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// ItemError records one failed item. The list is append-only and never
// cleared.
type ItemError struct {
	ItemRef   string    `json:"itemRef"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Job holds one batch's identity, ordered work list, counters and collected
// errors. Jobs live only in the manager's in-memory registry; a process
// restart loses them.
//
// All fields are mutated exclusively by the manager under its lock; the
// driver only ever returns outcomes.
type Job struct {
	ID       string
	Items    []string
	Status   Status
	Progress progress.Snapshot
	Errors   []ItemError

	StartedAt time.Time
	EndedAt   *time.Time

	cancelRequested bool
	cancel          context.CancelFunc
}

func newJob(id string, items []string, cancel context.CancelFunc) *Job {
	ordered := make([]string, len(items))
	copy(ordered, items)
	return &Job{
		ID:       id,
		Items:    ordered,
		Status:   StatusIdle,
		Progress: progress.Snapshot{Total: len(ordered)},
		cancel:   cancel,
	}
}

// snapshot copies the job's observable state. Caller must hold the manager
// lock.
func (j *Job) snapshot() StatusSnapshot {
	errs := make([]ItemError, len(j.Errors))
	copy(errs, j.Errors)
	return StatusSnapshot{
		TransferID: j.ID,
		Status:     j.Status,
		Progress:   j.Progress,
		Errors:     errs,
		StartedAt:  j.StartedAt,
		EndedAt:    j.EndedAt,
	}
}
